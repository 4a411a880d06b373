package server

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/processor"
)

// CheckRequest is the body of the order check endpoint
type CheckRequest struct {
	Orders []model.Order `json:"orders" binding:"required,min=1"`
}

// OrderCheck is the dry-run verdict for one order
type OrderCheck struct {
	OrderID     int64                 `json:"order_id"`
	OrderNumber string                `json:"order_number,omitempty"`
	Outcome     string                `json:"outcome"`
	Reason      string                `json:"reason,omitempty"`
	Computed    *decimal.Decimal      `json:"computed_total,omitempty"`
	Declared    *decimal.Decimal      `json:"declared_total,omitempty"`
	Delta       *decimal.Decimal      `json:"delta,omitempty"`
	Payload     *model.InvoicePayload `json:"payload,omitempty"`
	Error       string                `json:"error,omitempty"`
	ErrorKind   string                `json:"error_kind,omitempty"`
}

// CheckResponse is the response for the order check endpoint
type CheckResponse struct {
	RunID   string          `json:"run_id"`
	Results []OrderCheck    `json:"results"`
	Stats   processor.Stats `json:"stats"`
}

// LinksResponse is the response for the invoice links endpoint
type LinksResponse struct {
	Count int                      `json:"count"`
	Links []model.InvoiceLinkEntry `json:"links"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case model.IsDataInvariant(err):
		return "data_invariant"
	case model.IsReconciliation(err):
		return "reconciliation"
	case model.IsRateLimited(err):
		return "rate_limited"
	}
	return "other"
}

func newOrderCheck(r *processor.Result, withPayload bool) OrderCheck {
	check := OrderCheck{
		OrderID:     r.OrderID,
		OrderNumber: r.OrderNumber,
		Outcome:     string(r.Outcome),
		Reason:      r.Reason,
		ErrorKind:   errorKind(r.Error),
	}
	if r.Error != nil {
		check.Error = r.Error.Error()
	}
	if rec := r.Reconciliation; rec != nil {
		check.Computed = &rec.Computed
		check.Declared = &rec.Declared
		check.Delta = &rec.Delta
	}
	if withPayload {
		check.Payload = r.Payload
	}
	return check
}
