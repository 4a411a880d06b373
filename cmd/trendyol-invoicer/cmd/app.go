package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/config"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/logger"
	"github.com/rezonia/trendyol-invoicer/internal/metrics"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/oblio"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
	"github.com/rezonia/trendyol-invoicer/internal/trendyol"
)

// app carries the components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(c *config.Config, logCfg *logger.Config) (*app, error) {
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
		logCfg.Format = c.Log.Format
		if c.Log.Output != "" {
			logCfg.Output = c.Log.Output
		}
	}
	logCfg.Level = c.Log.Level

	zl, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	return &app{
		cfg:      c,
		logger:   zl,
		registry: registry,
		metrics:  metrics.New(registry),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) httpClient(service string) *transport.Client {
	return transport.New(service,
		transport.WithDoer(&http.Client{Timeout: a.cfg.Run.HTTPTimeout}),
		transport.WithBackoff(a.cfg.Run.RateLimitBackoff),
		transport.WithLogger(a.logger),
		transport.WithRateLimitHook(a.metrics.RateLimited),
	)
}

func (a *app) trendyolClient() (*trendyol.Client, error) {
	return trendyol.NewClient(trendyol.Config{
		BaseURL:   a.cfg.Trendyol.BaseURL,
		SellerID:  a.cfg.Trendyol.SellerID,
		APIKey:    a.cfg.Trendyol.APIKey,
		APISecret: a.cfg.Trendyol.APISecret,
		PageSize:  a.cfg.Trendyol.PageSize,
	}, a.httpClient(trendyol.ServiceName), a.logger)
}

func (a *app) oblioClient() (*oblio.Client, error) {
	return oblio.NewClient(oblio.Config{
		BaseURL:      a.cfg.Oblio.BaseURL,
		CIF:          a.cfg.Oblio.CIF,
		ClientID:     a.cfg.Oblio.ClientID,
		ClientSecret: a.cfg.Oblio.ClientSecret,
	}, a.httpClient(oblio.ServiceName), oblio.WithLogger(a.logger))
}

func (a *app) invoiceLinks() *ledger.Log[model.InvoiceLinkEntry] {
	return ledger.NewInvoiceLinks(a.cfg.Files.InvoiceLinksPath())
}

// writeMetrics dumps the collected metrics in text exposition format when path is set
func (a *app) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		a.logger.Warn("failed to write metrics file", zap.String("path", path), zap.Error(err))
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
