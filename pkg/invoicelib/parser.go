package invoicelib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// ErrMissingCIF is returned when Options carry no seller fiscal code
var ErrMissingCIF = errors.New("invoicelib: CIF is required")

// Preparer turns one order into an invoice payload
type Preparer interface {
	// Prepare classifies, builds and reconciles the order
	Prepare(order *Order) (*Result, error)

	// PrepareBatch prepares many orders
	PrepareBatch(orders []Order) ([]*Result, error)
}

// Result is the outcome of preparing one order
type Result struct {
	Verdict  Verdict
	Reason   string
	Payload  *InvoicePayload
	Computed decimal.Decimal
	Declared decimal.Decimal
	Delta    decimal.Decimal
}

// Ready reports whether the payload can be submitted as is
func (r *Result) Ready() bool {
	return r.Verdict == Proceed && r.Payload != nil
}

// Options configures a Processor
type Options struct {
	CIF               string
	SeriesName        string // default: AAA
	VATPercentage     int    // default: 21
	BucharestCountyID int64  // default: 12261437
	Tolerance         string // decimal string, default: 0.01
	Policy            string // v1, v2, v3 or latest (default)
}

// DefaultOptions returns the options the CLI runs with, minus the CIF
func DefaultOptions() Options {
	cfg := invoicing.DefaultConfig()
	return Options{
		SeriesName:        cfg.SeriesName,
		VATPercentage:     cfg.VATPercentage,
		BucharestCountyID: cfg.BucharestCountyID,
		Tolerance:         cfg.Tolerance.String(),
		Policy:            cfg.Policy.Name,
	}
}

func (o Options) config() (invoicing.Config, error) {
	cfg := invoicing.DefaultConfig()
	if strings.TrimSpace(o.CIF) == "" {
		return cfg, ErrMissingCIF
	}
	cfg.CIF = o.CIF
	if o.SeriesName != "" {
		cfg.SeriesName = o.SeriesName
	}
	if o.VATPercentage != 0 {
		cfg.VATPercentage = o.VATPercentage
	}
	if o.BucharestCountyID != 0 {
		cfg.BucharestCountyID = o.BucharestCountyID
	}
	if o.Tolerance != "" {
		tol, err := money.FromString(o.Tolerance)
		if err != nil {
			return cfg, fmt.Errorf("invalid tolerance %q: %w", o.Tolerance, err)
		}
		cfg.Tolerance = tol
	}
	policy, err := invoicing.PolicyByName(o.Policy)
	if err != nil {
		return cfg, err
	}
	cfg.Policy = policy
	return cfg, nil
}

// ParseOrders decodes orders from either an order API page ({"content": [...]}) or a bare array
func ParseOrders(r io.Reader) ([]Order, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no orders in input")
	}

	if data[0] == '[' {
		var orders []Order
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("failed to decode orders: %w", err)
		}
		return orders, nil
	}

	var page model.OrderPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode order page: %w", err)
	}
	return page.Content, nil
}
