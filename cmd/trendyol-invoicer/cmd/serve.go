package cmd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/logger"
	"github.com/rezonia/trendyol-invoicer/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server exposing the invoicing rules and the invoice log.

The API provides endpoints for:
  - POST /api/v1/orders/check   - Dry-run posted orders ({"orders": [...]}, ?payload=true)
  - GET  /api/v1/links          - Issued invoices (?order_id=)
  - GET  /metrics               - Prometheus metrics
  - GET  /health                - Health check

Examples:
  # Start server on SERVER_ADDR (default :8080)
  trendyol-invoicer serve

  # Start on a custom port in debug mode
  trendyol-invoicer serve --address :9090 --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: SERVER_ADDR)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(serverSection)
	if err != nil {
		return err
	}
	if serverAddr != "" {
		c.Server.Addr = serverAddr
	}

	a, err := newApp(c, logger.ServerConfig())
	if err != nil {
		return err
	}
	defer a.close()

	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.NewServer(&server.Config{
		Address:      c.Server.Addr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
	}, engine, a.invoiceLinks(), a.registry, a.logger)

	ctx, cancel := signalContext()
	defer cancel()

	a.logger.Info("starting server",
		zap.String("addr", c.Server.Addr),
		zap.String("policy", engine.Config().Policy.Name),
	)
	return srv.Run(ctx)
}
