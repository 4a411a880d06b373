package invoicelib

import (
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
)

// Processor implements Preparer using the internal invoicing engine
type Processor struct {
	engine *invoicing.Engine
}

// NewProcessor creates a processor; an unknown policy or invalid setting is an error
func NewProcessor(opts Options) (*Processor, error) {
	cfg, err := opts.config()
	if err != nil {
		return nil, err
	}
	engine, err := invoicing.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Processor{engine: engine}, nil
}

// Policy returns the active policy
func (p *Processor) Policy() Policy {
	return p.engine.Config().Policy
}

// Prepare classifies the order and builds its payload. Skipped orders return a Result with a
// nil payload and no error. Data problems and total mismatches return the typed error along
// with the partial result.
func (p *Processor) Prepare(order *Order) (*Result, error) {
	prep, err := p.engine.Prepare(order)
	result := &Result{
		Verdict: prep.Decision.Verdict,
		Reason:  prep.Decision.Reason,
		Payload: prep.Payload,
	}
	if rec := prep.Reconciliation; rec != nil {
		result.Computed = rec.Computed
		result.Declared = rec.Declared
		result.Delta = rec.Delta
	} else if prep.Payload != nil {
		result.Computed = prep.Payload.Total()
		result.Declared = order.TotalPrice
		result.Delta = result.Computed.Sub(result.Declared).Abs()
	}
	if err != nil {
		result.Payload = nil
		return result, err
	}
	return result, nil
}

// PrepareBatch prepares orders one at a time. Results keep the input order; every order is
// prepared and the error of the earliest failing order is returned.
func (p *Processor) PrepareBatch(orders []Order) ([]*Result, error) {
	results := make([]*Result, len(orders))

	var firstErr error
	for i := range orders {
		result, err := p.Prepare(&orders[i])
		results[i] = result
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
