// Package invoicing turns Trendyol orders into Oblio invoice payloads.
//
// It decides whether an order may be invoiced, builds the invoice rows (products followed by
// their discounts), resolves the client city and checks that the invoice total matches what the
// marketplace charged. Everything here is pure data transformation: no I/O, no clocks.
package invoicing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
)

// BucharestCountyID is the Trendyol county id of Bucharest
const BucharestCountyID int64 = 12261437

// Defaults used by DefaultConfig
const (
	DefaultSeriesName    = "AAA"
	DefaultVATPercentage = 21
)

var (
	ErrMissingSeries = errors.New("invoicing: series name is required")
	ErrInvalidVAT    = errors.New("invoicing: VAT percentage must be between 0 and 100")
	ErrNegativeTol   = errors.New("invoicing: price tolerance must not be negative")
	ErrUnknownPolicy = errors.New("invoicing: unknown policy")
)

// DiscountMode selects how a line discount becomes a discount row
type DiscountMode int

const (
	// DiscountPerLine emits the first discount detail value as-is
	DiscountPerLine DiscountMode = iota
	// DiscountPerUnit multiplies the per-unit discount by the line quantity
	DiscountPerUnit
)

// Policy groups the behaviour that changed between releases of the workflow
type Policy struct {
	Name              string
	Discount          DiscountMode
	NormalizeSectors  bool
	ReconcilePayload  bool
	ReconcileReported bool
}

// Known policies. PolicyV3 is the current behaviour.
var (
	PolicyV1 = Policy{
		Name:     "v1",
		Discount: DiscountPerLine,
	}
	PolicyV2 = Policy{
		Name:             "v2",
		Discount:         DiscountPerUnit,
		NormalizeSectors: true,
		ReconcilePayload: true,
	}
	PolicyV3 = Policy{
		Name:              "v3",
		Discount:          DiscountPerUnit,
		NormalizeSectors:  true,
		ReconcilePayload:  true,
		ReconcileReported: true,
	}
)

// PolicyByName resolves a policy from its name; "" means the current policy
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "v3", "latest":
		return PolicyV3, nil
	case "v2":
		return PolicyV2, nil
	case "v1":
		return PolicyV1, nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Config holds the issuer settings every payload is built with
type Config struct {
	CIF               string
	SeriesName        string
	VATPercentage     int
	BucharestCountyID int64
	Tolerance         decimal.Decimal
	Policy            Policy
}

// DefaultConfig returns the settings used in production, without a CIF
func DefaultConfig() Config {
	return Config{
		SeriesName:        DefaultSeriesName,
		VATPercentage:     DefaultVATPercentage,
		BucharestCountyID: BucharestCountyID,
		Tolerance:         money.DefaultTolerance,
		Policy:            PolicyV3,
	}
}

// Validate checks the settings that would otherwise produce a rejected invoice
func (c Config) Validate() error {
	if strings.TrimSpace(c.SeriesName) == "" {
		return ErrMissingSeries
	}
	if c.VATPercentage < 0 || c.VATPercentage > 100 {
		return ErrInvalidVAT
	}
	if c.Tolerance.IsNegative() {
		return ErrNegativeTol
	}
	return nil
}
