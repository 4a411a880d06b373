package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Preparation is everything decided about an order before anything is submitted
type Preparation struct {
	Decision       Decision
	Payload        *model.InvoicePayload
	Reconciliation *Reconciliation
}

// Ready reports whether the payload may be submitted
func (p *Preparation) Ready() bool {
	return !p.Decision.Skipped() && p.Payload != nil &&
		(p.Reconciliation == nil || p.Reconciliation.Match)
}

// Engine runs classification, payload building and reconciliation under one policy
type Engine struct {
	cfg        Config
	builder    *Builder
	reconciler *Reconciler
}

// NewEngine validates cfg and creates an engine
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		builder:    NewBuilder(cfg),
		reconciler: NewReconciler(cfg.Tolerance),
	}, nil
}

// Config returns the engine settings
func (e *Engine) Config() Config {
	return e.cfg
}

// Prepare classifies the order and, when it is eligible, builds and reconciles its payload.
// Skipped orders return a nil error; data and reconciliation failures return the typed error
// together with whatever was prepared so far.
func (e *Engine) Prepare(order *model.Order) (*Preparation, error) {
	prep := &Preparation{Decision: Classify(order)}
	if prep.Decision.Skipped() {
		return prep, nil
	}

	payload, err := e.builder.Build(order)
	if err != nil {
		return prep, err
	}
	prep.Payload = payload

	if e.cfg.Policy.ReconcilePayload {
		rec := e.reconciler.ReconcilePayload(payload, order.TotalPrice)
		prep.Reconciliation = &rec
		if err := rec.Err(order.ID); err != nil {
			return prep, err
		}
	}
	return prep, nil
}

// VerifyReported checks the total Oblio reports for an issued invoice.
// It is a no-op for policies without post-submission reconciliation.
func (e *Engine) VerifyReported(order *model.Order, reported decimal.Decimal) (*Reconciliation, error) {
	if !e.cfg.Policy.ReconcileReported {
		return nil, nil
	}
	rec := e.reconciler.ReconcileReported(reported, order.TotalPrice)
	return &rec, rec.Err(order.ID)
}
