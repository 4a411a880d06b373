package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Download statuses recorded in the download log
const (
	DownloadStatusDownloaded    = "downloaded"
	DownloadStatusAlreadyExists = "already_existed"
)

// InvoiceLinkEntry records one issued invoice and its public link
type InvoiceLinkEntry struct {
	Timestamp     time.Time       `json:"timestamp"`
	RunID         string          `json:"run_id,omitempty"`
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number,omitempty"`
	InvoiceSeries string          `json:"invoice_series,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceLink   string          `json:"invoice_link"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// LinkKey keys the invoice link log by order id
func LinkKey(e InvoiceLinkEntry) string {
	return strconv.FormatInt(e.OrderID, 10)
}

// CancelledOrderEntry records an order skipped because it was cancelled
type CancelledOrderEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Reason      string    `json:"reason"`
}

// CancelledKey keys the cancelled order log by order id
func CancelledKey(e CancelledOrderEntry) string {
	return strconv.FormatInt(e.OrderID, 10)
}

// DownloadEntry records one invoice PDF fetched to disk
type DownloadEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	OrderID       int64     `json:"order_id"`
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceLink   string    `json:"invoice_link"`
	Filename      string    `json:"filename"`
	Status        string    `json:"status"`
}

// DownloadKey keys the download log by invoice number
func DownloadKey(e DownloadEntry) string {
	return e.InvoiceNumber
}
