package processor

import (
	"time"

	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/oblio"
)

// Outcome is what happened to one order
type Outcome string

const (
	OutcomeSubmitted            Outcome = "submitted"
	OutcomeRelinked             Outcome = "relinked"
	OutcomeReady                Outcome = "ready"
	OutcomeSkippedCancelled     Outcome = "skipped_cancelled"
	OutcomeSkippedAwaiting      Outcome = "skipped_awaiting"
	OutcomeSkippedHasLink       Outcome = "skipped_has_link"
	OutcomeSkippedAlreadyLogged Outcome = "skipped_already_logged"
	OutcomeFailed               Outcome = "failed"
)

// Skipped reports whether the order was left alone on purpose
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedCancelled, OutcomeSkippedAwaiting, OutcomeSkippedHasLink, OutcomeSkippedAlreadyLogged:
		return true
	}
	return false
}

// Result is the outcome of processing one order
type Result struct {
	OrderID        int64
	OrderNumber    string
	Outcome        Outcome
	Reason         string
	Payload        *model.InvoicePayload
	Reconciliation *invoicing.Reconciliation
	Invoice        *oblio.InvoiceResult
	Error          error
	Duration       time.Duration
}

// Stats summarizes a run
type Stats struct {
	Total      int             `json:"total"`
	Submitted  int             `json:"submitted"`
	Relinked   int             `json:"relinked"`
	Ready      int             `json:"ready"`
	Skipped    map[Outcome]int `json:"skipped"`
	Failed     int             `json:"failed"`
	Mismatches int             `json:"mismatches"`
}

// AlreadyInvoiced counts orders that had an invoice before the run
func (s Stats) AlreadyInvoiced() int {
	return s.Skipped[OutcomeSkippedHasLink] + s.Skipped[OutcomeSkippedAlreadyLogged]
}

func (s *Stats) add(r *Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeSubmitted:
		s.Submitted++
	case OutcomeRelinked:
		s.Relinked++
	case OutcomeReady:
		s.Ready++
	case OutcomeFailed:
		s.Failed++
	default:
		if s.Skipped == nil {
			s.Skipped = make(map[Outcome]int)
		}
		s.Skipped[r.Outcome]++
	}
	if model.IsReconciliation(r.Error) {
		s.Mismatches++
	}
}

// Report is the full account of a run
type Report struct {
	RunID   string
	DryRun  bool
	Results []*Result
	Stats   Stats
}
