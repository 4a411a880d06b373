// Package config loads settings from a .env file and the environment.
//
// Variable names match the historical .env layout (SELLER_ID, API_KEY, CIF, ...). Environment
// variables take precedence over the file. Sections are validated separately so each command only
// requires the credentials it actually uses.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
	"github.com/rezonia/trendyol-invoicer/internal/fileutil"
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
)

// DefaultEnvFile is read from the working directory when no file is given
const DefaultEnvFile = ".env"

// Config is the complete application configuration
type Config struct {
	Trendyol TrendyolConfig
	Oblio    OblioConfig
	Invoice  InvoiceConfig
	Run      RunConfig
	Files    FilesConfig
	Log      LogConfig
	Server   ServerConfig
}

// TrendyolConfig holds the seller API credentials
type TrendyolConfig struct {
	BaseURL   string `env:"TRENDYOL_BASE_URL" validate:"required,url"`
	SellerID  string `env:"SELLER_ID" validate:"required"`
	APIKey    string `env:"API_KEY" validate:"required"`
	APISecret string `env:"API_SECRET" validate:"required"`
	PageSize  int    `env:"PAGE_SIZE" validate:"min=1,max=200"`
}

// OblioConfig holds the Oblio API credentials
type OblioConfig struct {
	BaseURL      string `env:"OBLIO_BASE_URL" validate:"required,url"`
	CIF          string `env:"CIF" validate:"required"`
	ClientID     string `env:"CLIENT_ID" validate:"required"`
	ClientSecret string `env:"CLIENT_SECRET" validate:"required"`
}

// InvoiceConfig holds the invoice content settings
type InvoiceConfig struct {
	SeriesName        string          `env:"SERIES_NAME" validate:"required"`
	VATPercentage     int             `env:"VAT_PERCENTAGE" validate:"min=0,max=100"`
	BucharestCountyID int64           `env:"BUCHAREST_COUNTY_ID" validate:"required"`
	PriceTolerance    decimal.Decimal `env:"PRICE_TOLERANCE"`
	Policy            string          `env:"INVOICE_POLICY" validate:"omitempty,oneof=v1 v2 v3 latest"`
}

// RunConfig holds pacing and retry settings
type RunConfig struct {
	OrderDelay       time.Duration `env:"ORDER_DELAY" validate:"min=0"`
	DownloadDelay    time.Duration `env:"DOWNLOAD_DELAY" validate:"min=0"`
	RateLimitBackoff time.Duration `env:"RATE_LIMIT_BACKOFF" validate:"min=0"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0"`
	MinSPVNumber     int64         `env:"MIN_SPV_NUMBER" validate:"min=0"`
}

// FilesConfig locates the state files
type FilesConfig struct {
	DataDir string `env:"DATA_DIR" validate:"required"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `env:"LOG_FORMAT" validate:"oneof=console json"`
	Output string `env:"LOG_OUTPUT"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `env:"SERVER_ADDR" validate:"required"`
}

var defaults = map[string]interface{}{
	"trendyol_base_url":   "https://apigw.trendyol.com",
	"page_size":           200,
	"oblio_base_url":      "https://www.oblio.eu/api",
	"series_name":         invoicing.DefaultSeriesName,
	"vat_percentage":      invoicing.DefaultVATPercentage,
	"bucharest_county_id": invoicing.BucharestCountyID,
	"price_tolerance":     "0.01",
	"invoice_policy":      "v3",
	"order_delay":         "1s",
	"download_delay":      "1s",
	"rate_limit_backoff":  "60s",
	"http_timeout":        "30s",
	"min_spv_number":      4000,
	"data_dir":            ".",
	"log_level":           "info",
	"log_format":          "console",
	"log_output":          "stderr",
	"server_addr":         ":8080",
}

// Load reads envFile when it exists, then the environment. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" && fileutil.Exists(envFile) {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	tolerance, err := money.FromString(v.GetString("price_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_TOLERANCE %q: %w", v.GetString("price_tolerance"), err)
	}

	cfg := &Config{
		Trendyol: TrendyolConfig{
			BaseURL:   v.GetString("trendyol_base_url"),
			SellerID:  v.GetString("seller_id"),
			APIKey:    v.GetString("api_key"),
			APISecret: v.GetString("api_secret"),
			PageSize:  v.GetInt("page_size"),
		},
		Oblio: OblioConfig{
			BaseURL:      v.GetString("oblio_base_url"),
			CIF:          v.GetString("cif"),
			ClientID:     v.GetString("client_id"),
			ClientSecret: v.GetString("client_secret"),
		},
		Invoice: InvoiceConfig{
			SeriesName:        v.GetString("series_name"),
			VATPercentage:     v.GetInt("vat_percentage"),
			BucharestCountyID: v.GetInt64("bucharest_county_id"),
			PriceTolerance:    tolerance,
			Policy:            strings.ToLower(v.GetString("invoice_policy")),
		},
		Run: RunConfig{
			OrderDelay:       v.GetDuration("order_delay"),
			DownloadDelay:    v.GetDuration("download_delay"),
			RateLimitBackoff: v.GetDuration("rate_limit_backoff"),
			HTTPTimeout:      v.GetDuration("http_timeout"),
			MinSPVNumber:     v.GetInt64("min_spv_number"),
		},
		Files: FilesConfig{
			DataDir: v.GetString("data_dir"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
			Output: v.GetString("log_output"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server_addr"),
		},
	}

	if err := Validate(&cfg.Invoice, &cfg.Run, &cfg.Files, &cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InvoicingConfig builds the invoicing settings for the configured issuer
func (c *Config) InvoicingConfig() (invoicing.Config, error) {
	policy, err := invoicing.PolicyByName(c.Invoice.Policy)
	if err != nil {
		return invoicing.Config{}, err
	}
	return invoicing.Config{
		CIF:               c.Oblio.CIF,
		SeriesName:        c.Invoice.SeriesName,
		VATPercentage:     c.Invoice.VATPercentage,
		BucharestCountyID: c.Invoice.BucharestCountyID,
		Tolerance:         c.Invoice.PriceTolerance,
		Policy:            policy,
	}, nil
}

// InvoiceLinksPath is the issued invoice log
func (f FilesConfig) InvoiceLinksPath() string {
	return filepath.Join(f.DataDir, ledger.InvoiceLinksFile)
}

// CancelledOrdersPath is the cancelled order log
func (f FilesConfig) CancelledOrdersPath() string {
	return filepath.Join(f.DataDir, ledger.CancelledOrdersFile)
}

// DownloadsPath is the download log
func (f FilesConfig) DownloadsPath() string {
	return filepath.Join(f.DataDir, ledger.DownloadsFile)
}

// OrdersSnapshotPath is the default orders snapshot
func (f FilesConfig) OrdersSnapshotPath() string {
	return filepath.Join(f.DataDir, "orders.json")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Validate checks the given sections and reports every failing variable by name
func Validate(sections ...interface{}) error {
	var missing []string
	for _, section := range sections {
		err := validate.Struct(section)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w", err)
		}
		for _, fe := range verrs {
			missing = append(missing, describe(fe))
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Problems: missing}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fe.Field() + " must be a URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// ValidationError lists configuration problems
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}
