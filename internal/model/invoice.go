package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
)

// LineItemKind distinguishes the two row types Oblio accepts in "products"
type LineItemKind string

const (
	LineItemProduct  LineItemKind = "product"
	LineItemDiscount LineItemKind = "discount"
)

// Fixed Oblio vocabulary
const (
	MeasuringUnitPiece   = "buc"
	VATNameNormal        = "Normala"
	DiscountName         = "Discount"
	DiscountTypeAbsolute = "valoric"
	CountryRomania       = "Romania"
)

// Flag is a boolean that Oblio expects as 0/1
type Flag bool

// MarshalJSON encodes the flag as 1 or 0
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1 and true/false
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "1", "true":
		*f = true
	default:
		*f = false
	}
	return nil
}

// LineItem is one row of an invoice: a priced product or a discount that applies to the
// product immediately before it.
type LineItem struct {
	Kind LineItemKind

	Name string

	// Product fields
	Code             string
	Price            decimal.Decimal
	MeasuringUnit    string
	VATName          string
	VATPercentage    int
	VATIncluded      Flag
	Quantity         int
	DiscountAllAbove Flag

	// Discount fields
	Discount     decimal.Decimal
	DiscountType string
}

// NewProductItem creates a product row with the fixed unit and VAT settings
func NewProductItem(name, code string, price decimal.Decimal, quantity, vatPercentage int) LineItem {
	return LineItem{
		Kind:             LineItemProduct,
		Name:             name,
		Code:             code,
		Price:            price,
		MeasuringUnit:    MeasuringUnitPiece,
		VATName:          VATNameNormal,
		VATPercentage:    vatPercentage,
		VATIncluded:      true,
		Quantity:         quantity,
		DiscountAllAbove: true,
	}
}

// NewDiscountItem creates an absolute-value discount row
func NewDiscountItem(amount decimal.Decimal) LineItem {
	return LineItem{
		Kind:         LineItemDiscount,
		Name:         DiscountName,
		Discount:     amount,
		DiscountType: DiscountTypeAbsolute,
	}
}

// IsDiscount reports whether the row is a discount row
func (li LineItem) IsDiscount() bool {
	return li.Kind == LineItemDiscount
}

// Total returns price x quantity for products and the negated discount for discount rows
func (li LineItem) Total() decimal.Decimal {
	if li.IsDiscount() {
		return li.Discount.Neg()
	}
	return money.MulQty(li.Price, li.Quantity)
}

type productJSON struct {
	Name             string      `json:"name"`
	Code             string      `json:"code,omitempty"`
	Price            json.Number `json:"price"`
	MeasuringUnit    string      `json:"measuringUnit"`
	VATName          string      `json:"vatName"`
	VATPercentage    int         `json:"vatPercentage"`
	VATIncluded      Flag        `json:"vatIncluded"`
	Quantity         int         `json:"quantity"`
	DiscountAllAbove Flag        `json:"discountAllAbove"`
}

type discountJSON struct {
	Name         string      `json:"name"`
	Discount     json.Number `json:"discount"`
	DiscountType string      `json:"discountType"`
}

// MarshalJSON writes the Oblio shape of the row with amounts as JSON numbers
func (li LineItem) MarshalJSON() ([]byte, error) {
	if li.IsDiscount() {
		return json.Marshal(discountJSON{
			Name:         li.Name,
			Discount:     json.Number(li.Discount.String()),
			DiscountType: li.DiscountType,
		})
	}
	return json.Marshal(productJSON{
		Name:             li.Name,
		Code:             li.Code,
		Price:            json.Number(li.Price.String()),
		MeasuringUnit:    li.MeasuringUnit,
		VATName:          li.VATName,
		VATPercentage:    li.VATPercentage,
		VATIncluded:      li.VATIncluded,
		Quantity:         li.Quantity,
		DiscountAllAbove: li.DiscountAllAbove,
	})
}

// Client is the buyer block of the invoice
type Client struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	State   string `json:"state"`
	City    string `json:"city"`
	Country string `json:"country"`
	Save    Flag   `json:"save"`
	Code    string `json:"code"`
}

// InvoicePayload is the body sent to Oblio to issue one invoice
type InvoicePayload struct {
	CIF        string     `json:"cif"`
	Client     Client     `json:"client"`
	SeriesName string     `json:"seriesName"`
	Products   []LineItem `json:"products"`
}

// Total returns the invoice total as Oblio will compute it: products minus discounts
func (p *InvoicePayload) Total() decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(p.Products))
	for _, item := range p.Products {
		totals = append(totals, item.Total())
	}
	return money.Sum(totals)
}
