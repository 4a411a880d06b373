package invoicing

import (
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Verdict is the eligibility outcome for an order
type Verdict int

const (
	Proceed Verdict = iota
	SkipCancelled
	SkipAwaiting
)

func (v Verdict) String() string {
	switch v {
	case Proceed:
		return "proceed"
	case SkipCancelled:
		return "skip_cancelled"
	case SkipAwaiting:
		return "skip_awaiting"
	default:
		return "unknown"
	}
}

// Decision is a verdict with the status text that caused it
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Skipped reports whether the order must not be invoiced
func (d Decision) Skipped() bool {
	return d.Verdict != Proceed
}

// Classify decides whether an order may be invoiced.
// A Cancelled line wins over an Awaiting one regardless of line order;
// line statuses are consulted before the last package history status.
func Classify(order *model.Order) Decision {
	for _, line := range order.Lines {
		if line.Status == model.StatusCancelled {
			return Decision{Verdict: SkipCancelled, Reason: "line status: " + line.Status}
		}
	}
	for _, line := range order.Lines {
		if line.Status == model.StatusAwaiting {
			return Decision{Verdict: SkipAwaiting, Reason: "line status: " + line.Status}
		}
	}

	switch status := order.LastPackageStatus(); status {
	case model.StatusCancelled:
		return Decision{Verdict: SkipCancelled, Reason: "package status: " + status}
	case model.StatusAwaiting:
		return Decision{Verdict: SkipAwaiting, Reason: "package status: " + status}
	}

	return Decision{Verdict: Proceed}
}
