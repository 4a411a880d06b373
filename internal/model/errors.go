package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconcileStage identifies which total failed reconciliation
type ReconcileStage string

const (
	StagePayload  ReconcileStage = "payload"
	StageReported ReconcileStage = "reported"
)

// DataInvariantError reports marketplace data the transformer cannot safely invoice
type DataInvariantError struct {
	OrderID int64
	Field   string
	Message string
}

func (e *DataInvariantError) Error() string {
	return fmt.Sprintf("order %d: invalid %s: %s", e.OrderID, e.Field, e.Message)
}

// NewDataInvariantError creates a new data invariant error
func NewDataInvariantError(orderID int64, field, message string) *DataInvariantError {
	return &DataInvariantError{
		OrderID: orderID,
		Field:   field,
		Message: message,
	}
}

// ReconciliationError reports a total that differs from the marketplace total beyond tolerance
type ReconciliationError struct {
	OrderID   int64
	Stage     ReconcileStage
	Computed  decimal.Decimal
	Declared  decimal.Decimal
	Delta     decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("order %d: %s total %s differs from marketplace total %s by %s (tolerance %s)",
		e.OrderID, e.Stage, e.Computed.StringFixed(2), e.Declared.StringFixed(2),
		e.Delta.StringFixed(2), e.Tolerance.String())
}

// RateLimitError is returned when an API keeps answering 429 after the retry
type RateLimitError struct {
	Service  string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts", e.Service, e.Attempts)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(service string, attempts int) *RateLimitError {
	return &RateLimitError{Service: service, Attempts: attempts}
}

// SubmissionError is a non-success answer from one of the remote APIs
type SubmissionError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Service, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// NewSubmissionError creates a new submission error
func NewSubmissionError(service, operation string, statusCode int, body string) *SubmissionError {
	return &SubmissionError{
		Service:    service,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
	}
}

// IsDataInvariant reports whether err is a data invariant violation
func IsDataInvariant(err error) bool {
	var de *DataInvariantError
	return errors.As(err, &de)
}

// IsReconciliation reports whether err is a reconciliation mismatch
func IsReconciliation(err error) bool {
	var re *ReconciliationError
	return errors.As(err, &re)
}

// IsRateLimited reports whether err is an exhausted rate limit
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
