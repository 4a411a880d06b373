package invoicing

import (
	"github.com/shopspring/decimal"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Reconciliation compares an invoice total with the marketplace total
type Reconciliation struct {
	Stage    model.ReconcileStage
	Computed decimal.Decimal
	Declared decimal.Decimal
	Delta    decimal.Decimal
	Match    bool

	tolerance decimal.Decimal
}

// Err returns a *model.ReconciliationError for a mismatch and nil otherwise
func (r Reconciliation) Err(orderID int64) error {
	if r.Match {
		return nil
	}
	return &model.ReconciliationError{
		OrderID:   orderID,
		Stage:     r.Stage,
		Computed:  r.Computed,
		Declared:  r.Declared,
		Delta:     r.Delta,
		Tolerance: r.tolerance,
	}
}

// Reconciler checks totals against the marketplace total within a tolerance
type Reconciler struct {
	tolerance decimal.Decimal
}

// NewReconciler creates a reconciler; a negative tolerance is treated as zero
func NewReconciler(tolerance decimal.Decimal) *Reconciler {
	if tolerance.IsNegative() {
		tolerance = money.Zero
	}
	return &Reconciler{tolerance: tolerance}
}

// Tolerance returns the accepted absolute difference
func (r *Reconciler) Tolerance() decimal.Decimal {
	return r.tolerance
}

// ReconcilePayload compares the total of the rows about to be submitted
func (r *Reconciler) ReconcilePayload(payload *model.InvoicePayload, declared decimal.Decimal) Reconciliation {
	return r.compare(model.StagePayload, payload.Total(), declared)
}

// ReconcileReported compares the total Oblio reports for the issued invoice
func (r *Reconciler) ReconcileReported(reported, declared decimal.Decimal) Reconciliation {
	return r.compare(model.StageReported, reported, declared)
}

func (r *Reconciler) compare(stage model.ReconcileStage, computed, declared decimal.Decimal) Reconciliation {
	delta := money.AbsDiff(computed, declared)
	return Reconciliation{
		Stage:     stage,
		Computed:  computed,
		Declared:  declared,
		Delta:     delta,
		Match:     money.WithinTolerance(computed, declared, r.tolerance),
		tolerance: r.tolerance,
	}
}
