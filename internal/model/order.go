package model

import (
	"github.com/shopspring/decimal"
)

// Line and package statuses that drive eligibility
const (
	StatusCancelled = "Cancelled"
	StatusAwaiting  = "Awaiting"
)

// Order is one Trendyol shipment package as returned by the order API
type Order struct {
	ID                int64            `json:"id"`
	OrderNumber       string           `json:"orderNumber"`
	CustomerID        int64            `json:"customerId"`
	CustomerFirstName string           `json:"customerFirstName,omitempty"`
	CustomerLastName  string           `json:"customerLastName,omitempty"`
	TotalPrice        decimal.Decimal  `json:"totalPrice"`
	CurrencyCode      string           `json:"currencyCode,omitempty"`
	Status            string           `json:"status"`
	Lines             []OrderLine      `json:"lines"`
	InvoiceAddress    InvoiceAddress   `json:"invoiceAddress"`
	PackageHistories  []PackageHistory `json:"packageHistories"`
	InvoiceLink       string           `json:"invoiceLink,omitempty"`
	OrderDate         int64            `json:"orderDate,omitempty"`
}

// HasInvoiceLink reports whether the order was already finalized on the marketplace
func (o *Order) HasInvoiceLink() bool {
	return o.InvoiceLink != ""
}

// LastPackageStatus returns the status of the last history entry, or "" when there is none.
// Callers guarantee chronological ordering.
func (o *Order) LastPackageStatus() string {
	if len(o.PackageHistories) == 0 {
		return ""
	}
	return o.PackageHistories[len(o.PackageHistories)-1].Status
}

// OrderLine is one product row of an order
type OrderLine struct {
	ID              int64            `json:"id,omitempty"`
	ProductName     string           `json:"productName"`
	ProductCode     int64            `json:"productCode"`
	MerchantSKU     string           `json:"merchantSku,omitempty"`
	Barcode         string           `json:"barcode,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	Price           decimal.Decimal  `json:"price"`
	Quantity        int              `json:"quantity"`
	Discount        decimal.Decimal  `json:"discount"`
	DiscountDetails []DiscountDetail `json:"discountDetails,omitempty"`
	Status          string           `json:"orderLineItemStatusName"`
}

// UnitDiscount returns the seller-funded discount for one unit of the line.
// Absent details mean no discount.
func (l *OrderLine) UnitDiscount() decimal.Decimal {
	if len(l.DiscountDetails) == 0 {
		return decimal.Zero
	}
	return l.DiscountDetails[0].LineItemDiscount
}

// DiscountDetail is the per-unit discount breakdown of an order line
type DiscountDetail struct {
	LineItemPrice      decimal.Decimal `json:"lineItemPrice"`
	LineItemDiscount   decimal.Decimal `json:"lineItemDiscount"`
	LineItemTyDiscount decimal.Decimal `json:"lineItemTyDiscount"`
}

// InvoiceAddress is the billing address attached to an order
type InvoiceAddress struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Company    string `json:"company,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	CountyID   int64  `json:"countyId"`
	CountyName string `json:"countyName"`
	PostalCode string `json:"postalCode"`
}

// PackageHistory is one status transition of the shipment package
type PackageHistory struct {
	CreatedDate int64  `json:"createdDate"`
	Status      string `json:"status"`
}

// OrderPage is one page of the Trendyol order listing
type OrderPage struct {
	Page          int     `json:"page"`
	Size          int     `json:"size"`
	TotalPages    int     `json:"totalPages"`
	TotalElements int     `json:"totalElements"`
	Content       []Order `json:"content"`
}
