// Package processor runs the per-order invoicing workflow: classify, build, reconcile, issue,
// verify, record and link, one order at a time.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/metrics"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/oblio"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
)

// DefaultOrderDelay is the pause after every order that called a remote API
const DefaultOrderDelay = time.Second

var ErrNotConfigured = errors.New("processor: invoice issuer and link notifier are required outside dry runs")

// OrderSource lists marketplace orders
type OrderSource interface {
	FetchOrders(ctx context.Context, status string) ([]model.Order, error)
}

// InvoiceIssuer issues invoices and reads them back
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, payload *model.InvoicePayload) (*oblio.InvoiceResult, error)
	GetInvoice(ctx context.Context, series, number string) (*oblio.InvoiceDocument, error)
}

// LinkNotifier attaches an invoice link to a marketplace shipment package
type LinkNotifier interface {
	SendInvoiceLink(ctx context.Context, link string, packageID int64) error
}

// Pipeline processes orders sequentially
type Pipeline struct {
	engine    *invoicing.Engine
	issuer    InvoiceIssuer
	notifier  LinkNotifier
	links     *ledger.Log[model.InvoiceLinkEntry]
	cancelled *ledger.Log[model.CancelledOrderEntry]

	logger          *zap.Logger
	metrics         *metrics.Metrics
	clock           clockwork.Clock
	delay           time.Duration
	dryRun          bool
	continueOnError bool
	limit           int
	runID           string
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithIssuer sets the invoicing API
func WithIssuer(issuer InvoiceIssuer) Option {
	return func(p *Pipeline) {
		p.issuer = issuer
	}
}

// WithNotifier sets the marketplace API used to forward invoice links
func WithNotifier(notifier LinkNotifier) Option {
	return func(p *Pipeline) {
		p.notifier = notifier
	}
}

// WithLedgers sets the issued invoice and cancelled order logs
func WithLedgers(links *ledger.Log[model.InvoiceLinkEntry], cancelled *ledger.Log[model.CancelledOrderEntry]) Option {
	return func(p *Pipeline) {
		p.links = links
		p.cancelled = cancelled
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock sets the clock used for delays and timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithDelay sets the pause between orders
func WithDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		p.delay = d
	}
}

// WithDryRun prepares and reconciles orders without calling any API or writing any log
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// WithContinueOnError keeps processing after an order fails
func WithContinueOnError(cont bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = cont
	}
}

// WithLimit stops after n orders; 0 means no limit
func WithLimit(n int) Option {
	return func(p *Pipeline) {
		p.limit = n
	}
}

// WithRunID sets the run identifier recorded in logs and the invoice link log
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// NewPipeline creates a pipeline around engine
func NewPipeline(engine *invoicing.Engine, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		engine: engine,
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		delay:  DefaultOrderDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	if !p.dryRun && (p.issuer == nil || p.notifier == nil) {
		return nil, ErrNotConfigured
	}
	p.logger = p.logger.With(zap.String("run_id", p.runID))
	return p, nil
}

// RunID returns the run identifier
func (p *Pipeline) RunID() string {
	return p.runID
}

// RunSource fetches orders from src and processes them
func (p *Pipeline) RunSource(ctx context.Context, src OrderSource, status string) (*Report, error) {
	orders, err := src.FetchOrders(ctx, status)
	if err != nil {
		return &Report{RunID: p.runID, DryRun: p.dryRun}, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return p.Run(ctx, orders)
}

// Run processes orders in order. It stops at the first failed order unless continue-on-error
// is set, and always stops when ctx is done. The returned error is the one that stopped the run.
func (p *Pipeline) Run(ctx context.Context, orders []model.Order) (*Report, error) {
	report := &Report{RunID: p.runID, DryRun: p.dryRun}
	p.logger.Info("run started", zap.Int("orders", len(orders)), zap.Bool("dry_run", p.dryRun))

	for i := range orders {
		if p.limit > 0 && i >= p.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		order := &orders[i]
		start := p.clock.Now()
		result, remote := p.processOrder(ctx, order)
		result.Duration = p.clock.Since(start)

		report.Results = append(report.Results, result)
		report.Stats.add(result)
		p.metrics.OrderProcessed(string(result.Outcome), result.Duration)

		if result.Error != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			p.logger.Error("order failed",
				zap.Int64("order_id", order.ID),
				zap.String("order_number", order.OrderNumber),
				zap.Error(result.Error),
			)
			if !p.continueOnError {
				return report, fmt.Errorf("order %d: %w", order.ID, result.Error)
			}
		}

		if remote && i < len(orders)-1 {
			if err := transport.Sleep(ctx, p.clock, p.delay); err != nil {
				return report, err
			}
		}
	}

	p.logger.Info("run finished",
		zap.Int("total", report.Stats.Total),
		zap.Int("submitted", report.Stats.Submitted),
		zap.Int("failed", report.Stats.Failed),
	)
	return report, nil
}

// processOrder handles one order; remote reports whether an API was called
func (p *Pipeline) processOrder(ctx context.Context, order *model.Order) (result *Result, remote bool) {
	result = &Result{OrderID: order.ID, OrderNumber: order.OrderNumber}
	logger := p.logger.With(zap.Int64("order_id", order.ID))

	if order.HasInvoiceLink() {
		result.Outcome = OutcomeSkippedHasLink
		logger.Debug("order already has an invoice link")
		return result, false
	}

	if p.links != nil {
		entry, found, err := p.links.Find(strconv.FormatInt(order.ID, 10))
		if err != nil {
			return p.fail(result, err), false
		}
		if found {
			if p.dryRun {
				result.Outcome = OutcomeSkippedAlreadyLogged
				return result, false
			}
			// invoice issued by an earlier run whose link never reached the marketplace
			if err := p.notifier.SendInvoiceLink(ctx, entry.InvoiceLink, order.ID); err != nil {
				return p.fail(result, err), true
			}
			result.Outcome = OutcomeRelinked
			result.Invoice = &oblio.InvoiceResult{
				SeriesName: entry.InvoiceSeries,
				Number:     oblio.Number(entry.InvoiceNumber),
				Link:       entry.InvoiceLink,
			}
			logger.Info("invoice link re-sent", zap.String("invoice_number", entry.InvoiceNumber))
			return result, true
		}
	}

	prep, err := p.engine.Prepare(order)
	result.Payload = prep.Payload
	result.Reconciliation = prep.Reconciliation
	result.Reason = prep.Decision.Reason
	if err != nil {
		if model.IsReconciliation(err) {
			p.metrics.Mismatch(string(model.StagePayload))
		}
		return p.fail(result, err), false
	}

	switch prep.Decision.Verdict {
	case invoicing.SkipCancelled:
		result.Outcome = OutcomeSkippedCancelled
		logger.Info("order cancelled, skipping", zap.String("reason", prep.Decision.Reason))
		if err := p.recordCancelled(order, prep.Decision.Reason); err != nil {
			return p.fail(result, err), false
		}
		return result, false
	case invoicing.SkipAwaiting:
		result.Outcome = OutcomeSkippedAwaiting
		logger.Info("order awaiting, skipping", zap.String("reason", prep.Decision.Reason))
		return result, false
	}

	if p.dryRun {
		result.Outcome = OutcomeReady
		return result, false
	}

	invoice, err := p.issuer.CreateInvoice(ctx, prep.Payload)
	if err != nil {
		return p.fail(result, err), true
	}
	result.Invoice = invoice
	p.metrics.InvoiceSubmitted()
	logger = logger.With(zap.String("invoice_number", invoice.Number.String()))

	if p.engine.Config().Policy.ReconcileReported {
		doc, err := p.issuer.GetInvoice(ctx, invoice.SeriesName, invoice.Number.String())
		if err != nil {
			return p.fail(result, err), true
		}
		rec, err := p.engine.VerifyReported(order, doc.Total)
		if rec != nil {
			result.Reconciliation = rec
		}
		if err != nil {
			p.metrics.Mismatch(string(model.StageReported))
			logger.Error("issued invoice total differs from marketplace total, link not forwarded",
				zap.String("reported", doc.Total.StringFixed(2)),
				zap.String("declared", order.TotalPrice.StringFixed(2)),
			)
			return p.fail(result, err), true
		}
	}

	if p.links != nil {
		if _, err := p.links.Append(model.InvoiceLinkEntry{
			Timestamp:     p.clock.Now(),
			RunID:         p.runID,
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			InvoiceSeries: invoice.SeriesName,
			InvoiceNumber: invoice.Number.String(),
			InvoiceLink:   invoice.Link,
			TotalAmount:   money.RoundBani(prep.Payload.Total()),
		}); err != nil {
			return p.fail(result, err), true
		}
	}

	if err := p.notifier.SendInvoiceLink(ctx, invoice.Link, order.ID); err != nil {
		return p.fail(result, err), true
	}

	result.Outcome = OutcomeSubmitted
	logger.Info("invoice issued and linked", zap.String("invoice_link", invoice.Link))
	return result, true
}

func (p *Pipeline) recordCancelled(order *model.Order, reason string) error {
	if p.dryRun || p.cancelled == nil {
		return nil
	}
	_, err := p.cancelled.Append(model.CancelledOrderEntry{
		Timestamp:   p.clock.Now(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      reason,
	})
	return err
}

func (p *Pipeline) fail(result *Result, err error) *Result {
	result.Outcome = OutcomeFailed
	result.Error = err
	return result
}
