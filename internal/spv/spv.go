// Package spv sends ranges of issued invoices to the national e-invoice system (SPV) through Oblio
package spv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/metrics"
	"github.com/rezonia/trendyol-invoicer/internal/oblio"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
)

// DefaultMinNumber is the invoice number both ends of a range must exceed
const DefaultMinNumber = 4000

var (
	ErrRangeOrder = errors.New("spv: start number must be less than or equal to end number")
	ErrRangeFloor = errors.New("spv: invoice numbers are below the allowed minimum")
)

// ValidateRange checks start <= end and that both exceed min
func ValidateRange(start, end, min int64) error {
	if start > end {
		return ErrRangeOrder
	}
	if start <= min || end <= min {
		return fmt.Errorf("%w: both numbers must be over %d", ErrRangeFloor, min)
	}
	return nil
}

// EInvoiceSender submits one issued invoice to SPV
type EInvoiceSender interface {
	SendEInvoice(ctx context.Context, series, number string) (*oblio.EInvoiceResult, error)
}

// Outcome is the answer for one invoice number
type Outcome struct {
	Number int64  `json:"number"`
	Sent   bool   `json:"sent"`
	Text   string `json:"text,omitempty"`
	Error  error  `json:"-"`
}

// Summary reports a range submission
type Summary struct {
	Series    string    `json:"series"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
	StoppedAt int64     `json:"stopped_at,omitempty"`
}

// Submitter sends invoice ranges one number at a time and stops at the first failure
type Submitter struct {
	sender  EInvoiceSender
	clock   clockwork.Clock
	delay   time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Submitter
type Option func(*Submitter)

// WithClock sets the clock used for delays
func WithClock(clock clockwork.Clock) Option {
	return func(s *Submitter) {
		s.clock = clock
	}
}

// WithDelay sets the pause between two submissions
func WithDelay(d time.Duration) Option {
	return func(s *Submitter) {
		s.delay = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Submitter) {
		s.metrics = m
	}
}

// NewSubmitter creates a submitter around sender
func NewSubmitter(sender EInvoiceSender, opts ...Option) *Submitter {
	s := &Submitter{
		sender: sender,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends series numbers start..end inclusive. The range must already be validated.
// The returned error is the failure that stopped the range, if any.
func (s *Submitter) Submit(ctx context.Context, series string, start, end int64) (*Summary, error) {
	summary := &Summary{Series: series, Start: start, End: end}

	for n := start; n <= end; n++ {
		number := fmt.Sprintf("%d", n)
		result, err := s.sender.SendEInvoice(ctx, series, number)

		outcome := Outcome{Number: n, Sent: err == nil, Error: err}
		if result != nil {
			outcome.Text = result.Text
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		s.metrics.SPVSubmitted(err == nil)

		if err != nil {
			summary.Failed++
			summary.StoppedAt = n
			s.logger.Error("spv submission failed, stopping",
				zap.String("series", series),
				zap.Int64("number", n),
				zap.Error(err),
			)
			return summary, fmt.Errorf("invoice %s%d: %w", series, n, err)
		}

		summary.Sent++
		s.logger.Info("invoice sent to spv", zap.String("series", series), zap.Int64("number", n))

		if n == end {
			break
		}
		if err := transport.Sleep(ctx, s.clock, s.delay); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
