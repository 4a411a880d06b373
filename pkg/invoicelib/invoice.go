// Package invoicelib provides a public API for turning Trendyol orders into Oblio invoice payloads.
//
// It exposes the order and invoice types, the eligibility rules and the total reconciliation
// used by the trendyol-invoicer CLI, without any network access.
//
// Example usage:
//
//	proc, err := invoicelib.NewProcessor(invoicelib.Options{CIF: "RO12345678"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	orders, err := invoicelib.ParseOrders(reader)
//	result, err := proc.Prepare(&orders[0])
//	fmt.Println(result.Payload.Total())
package invoicelib

import (
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Re-export core types for public API
type (
	Order          = model.Order
	OrderLine      = model.OrderLine
	InvoiceAddress = model.InvoiceAddress
	InvoicePayload = model.InvoicePayload
	LineItem       = model.LineItem
	Client         = model.Client
	Policy         = invoicing.Policy
	Verdict        = invoicing.Verdict
)

// Re-export eligibility verdicts
const (
	Proceed       = invoicing.Proceed
	SkipCancelled = invoicing.SkipCancelled
	SkipAwaiting  = invoicing.SkipAwaiting
)

// Re-export policies
var (
	PolicyV1 = invoicing.PolicyV1
	PolicyV2 = invoicing.PolicyV2
	PolicyV3 = invoicing.PolicyV3
)

// Re-export error types
type (
	DataInvariantError  = model.DataInvariantError
	ReconciliationError = model.ReconciliationError
	RateLimitError      = model.RateLimitError
	SubmissionError     = model.SubmissionError
)
