package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/processor"
)

// Config holds server configuration
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Debug           bool
}

// Server exposes order checks, the invoice link log and metrics over HTTP
type Server struct {
	config   *Config
	router   *gin.Engine
	engine   *invoicing.Engine
	links    *ledger.Log[model.InvoiceLinkEntry]
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer creates a new API server. A nil gatherer serves the default registry.
func NewServer(config *Config, engine *invoicing.Engine, links *ledger.Log[model.InvoiceLinkEntry], gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:   config,
		router:   router,
		engine:   engine,
		links:    links,
		gatherer: gatherer,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/orders/check", s.handleCheckOrders)
		v1.GET("/links", s.handleLinks)
	}
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"policy": s.engine.Config().Policy.Name,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCheckOrders runs the posted orders through a dry run: nothing is issued or recorded.
// Pass ?payload=true to include the invoice payloads.
func (s *Server) handleCheckOrders(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	opts := []processor.Option{
		processor.WithDryRun(true),
		processor.WithContinueOnError(true),
		processor.WithLogger(s.logger),
	}
	if s.links != nil {
		opts = append(opts, processor.WithLedgers(s.links, nil))
	}
	pipeline, err := processor.NewPipeline(s.engine, opts...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	report, err := pipeline.Run(ctx, req.Orders)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "check interrupted", Details: err.Error()})
		return
	}

	withPayload, _ := strconv.ParseBool(c.Query("payload"))
	resp := CheckResponse{
		RunID:   report.RunID,
		Results: make([]OrderCheck, 0, len(report.Results)),
		Stats:   report.Stats,
	}
	for _, r := range report.Results {
		resp.Results = append(resp.Results, newOrderCheck(r, withPayload))
	}
	c.JSON(http.StatusOK, resp)
}

// handleLinks lists the invoice link log, optionally narrowed with ?order_id=
func (s *Server) handleLinks(c *gin.Context) {
	if s.links == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "invoice link log not configured"})
		return
	}

	if raw := c.Query("order_id"); raw != "" {
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "order_id must be numeric"})
			return
		}
		entry, found, err := s.links.Find(raw)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read invoice link log", Details: err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no invoice for order " + raw})
			return
		}
		c.JSON(http.StatusOK, LinksResponse{Count: 1, Links: []model.InvoiceLinkEntry{entry}})
		return
	}

	entries, err := s.links.Entries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read invoice link log", Details: err.Error()})
		return
	}
	if entries == nil {
		entries = []model.InvoiceLinkEntry{}
	}
	c.JSON(http.StatusOK, LinksResponse{Count: len(entries), Links: entries})
}
