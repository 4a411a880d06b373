package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/trendyol-invoicer/internal/config"
	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
)

var managedEnv = []string{
	"SELLER_ID", "API_KEY", "API_SECRET", "CIF", "CLIENT_ID", "CLIENT_SECRET",
	"SERIES_NAME", "VAT_PERCENTAGE", "BUCHAREST_COUNTY_ID", "PRICE_TOLERANCE", "INVOICE_POLICY",
	"ORDER_DELAY", "DOWNLOAD_DELAY", "RATE_LIMIT_BACKOFF", "HTTP_TIMEOUT", "MIN_SPV_NUMBER",
	"PAGE_SIZE", "TRENDYOL_BASE_URL", "OBLIO_BASE_URL", "DATA_DIR",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "SERVER_ADDR",
}

// clearEnv blanks every managed variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		}
		os.Unsetenv(k)
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://apigw.trendyol.com", cfg.Trendyol.BaseURL)
	assert.Equal(t, 200, cfg.Trendyol.PageSize)
	assert.Equal(t, "https://www.oblio.eu/api", cfg.Oblio.BaseURL)
	assert.Equal(t, "AAA", cfg.Invoice.SeriesName)
	assert.Equal(t, 21, cfg.Invoice.VATPercentage)
	assert.Equal(t, int64(12261437), cfg.Invoice.BucharestCountyID)
	assert.True(t, cfg.Invoice.PriceTolerance.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, time.Second, cfg.Run.OrderDelay)
	assert.Equal(t, time.Minute, cfg.Run.RateLimitBackoff)
	assert.Equal(t, 30*time.Second, cfg.Run.HTTPTimeout)
	assert.Equal(t, int64(4000), cfg.Run.MinSPVNumber)
	assert.Equal(t, ".", cfg.Files.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, `SELLER_ID=123456
API_KEY=key
API_SECRET=secret
CIF=RO999
CLIENT_ID=someone@example.com
CLIENT_SECRET=s3cret
SERIES_NAME=TRD
PRICE_TOLERANCE=0.02
ORDER_DELAY=250ms
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123456", cfg.Trendyol.SellerID)
	assert.Equal(t, "key", cfg.Trendyol.APIKey)
	assert.Equal(t, "RO999", cfg.Oblio.CIF)
	assert.Equal(t, "someone@example.com", cfg.Oblio.ClientID)
	assert.Equal(t, "TRD", cfg.Invoice.SeriesName)
	assert.True(t, cfg.Invoice.PriceTolerance.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, 250*time.Millisecond, cfg.Run.OrderDelay)

	assert.NoError(t, config.Validate(&cfg.Trendyol, &cfg.Oblio))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "SELLER_ID=from-file\nSERIES_NAME=FILE\n")
	t.Setenv("SELLER_ID", "from-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Trendyol.SellerID)
	assert.Equal(t, "FILE", cfg.Invoice.SeriesName)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"tolerance", "PRICE_TOLERANCE", "abc", "PRICE_TOLERANCE"},
		{"vat", "VAT_PERCENTAGE", "150", "VAT_PERCENTAGE"},
		{"log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"policy", "INVOICE_POLICY", "v9", "INVOICE_POLICY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := config.Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsMissingCredentials(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = config.Validate(&cfg.Trendyol, &cfg.Oblio)
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "SELLER_ID is required")
	assert.Contains(t, verr.Problems, "CLIENT_SECRET is required")
	assert.Len(t, verr.Problems, 6)
}

func TestInvoicingConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIF", "RO123")
	t.Setenv("INVOICE_POLICY", "v2")

	cfg, err := config.Load("")
	require.NoError(t, err)

	ic, err := cfg.InvoicingConfig()
	require.NoError(t, err)
	assert.Equal(t, "RO123", ic.CIF)
	assert.Equal(t, invoicing.PolicyV2, ic.Policy)
	assert.Equal(t, "AAA", ic.SeriesName)
	assert.NoError(t, ic.Validate())
}

func TestFilesConfig_Paths(t *testing.T) {
	files := config.FilesConfig{DataDir: "/var/lib/invoicer"}
	assert.Equal(t, "/var/lib/invoicer/invoice_links.json", files.InvoiceLinksPath())
	assert.Equal(t, "/var/lib/invoicer/cancelled_orders.json", files.CancelledOrdersPath())
	assert.Equal(t, "/var/lib/invoicer/downloaded_invoices_log.json", files.DownloadsPath())
	assert.Equal(t, "/var/lib/invoicer/orders.json", files.OrdersSnapshotPath())
}
