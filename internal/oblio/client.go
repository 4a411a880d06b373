// Package oblio issues invoices through the Oblio API and submits them to SPV
package oblio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
)

const (
	// ServiceName identifies Oblio in errors and metrics
	ServiceName = "oblio"

	DefaultBaseURL = "https://www.oblio.eu/api"

	// tokenMargin is subtracted from expires_in
	tokenMargin = 60 * time.Second
	// defaultTokenTTL applies when the token response has no usable expires_in
	defaultTokenTTL = time.Hour
)

var ErrMissingCredentials = errors.New("oblio: cif, client id and client secret are required")

// Config holds the Oblio API credentials
type Config struct {
	BaseURL      string
	CIF          string
	ClientID     string
	ClientSecret string
}

// Number is an invoice number; Oblio sends it either as a string or as a JSON number
type Number string

// UnmarshalJSON accepts "4001" and 4001
func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = Number(data)
	return nil
}

func (n Number) String() string {
	return string(n)
}

// InvoiceResult is the issued invoice identity
type InvoiceResult struct {
	SeriesName string `json:"seriesName"`
	Number     Number `json:"number"`
	Link       string `json:"link"`
}

// InvoiceDocument is the issued invoice as Oblio reports it
type InvoiceDocument struct {
	SeriesName string          `json:"seriesName"`
	Number     Number          `json:"number"`
	Link       string          `json:"link"`
	Total      decimal.Decimal `json:"total"`
}

// EInvoiceResult is the answer to an SPV submission
type EInvoiceResult struct {
	Sent bool   `json:"sent"`
	Text string `json:"text"`
}

// Succeeded reports whether Oblio confirmed the SPV upload
func (r *EInvoiceResult) Succeeded() bool {
	if r.Sent {
		return true
	}
	text := strings.ToLower(r.Text)
	return strings.Contains(text, "trimisa cu succes") ||
		strings.Contains(text, "factura a fost trimisa in spv")
}

// Company is an issuer company accessible with the credentials
type Company struct {
	CIF     string `json:"cif"`
	Company string `json:"company"`
}

type envelope struct {
	Status        int             `json:"status"`
	StatusMessage string          `json:"statusMessage"`
	Data          json.RawMessage `json:"data"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
	TokenType   string          `json:"token_type"`
}

// Client is an Oblio API client. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *transport.Client
	clock  clockwork.Clock
	logger *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Option configures a Client
type Option func(*Client)

// WithClock sets the clock used for token expiry
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an Oblio client
func NewClient(cfg Config, httpClient *transport.Client, opts ...Option) (*Client, error) {
	if cfg.CIF == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = transport.New(ServiceName)
	}

	c := &Client{
		cfg:    cfg,
		http:   httpClient,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CIF returns the issuer fiscal code the client works for
func (c *Client) CIF() string {
	return c.cfg.CIF
}

// Token returns a cached access token, requesting a new one when missing or about to expire
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	resp, err := c.http.Do(ctx, formRequest(http.MethodPost, c.cfg.BaseURL+"/authorize/token", form, ""))
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", model.NewSubmissionError(ServiceName, "authorize", resp.StatusCode, string(resp.Body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return "", fmt.Errorf("oblio: failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", model.NewSubmissionError(ServiceName, "authorize", resp.StatusCode, "empty access token")
	}

	ttl := time.Duration(parseSeconds(tok.ExpiresIn)) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if ttl > tokenMargin {
		ttl -= tokenMargin
	}
	c.token = tok.AccessToken
	c.expiresAt = c.clock.Now().Add(ttl)

	c.logger.Debug("obtained access token", zap.Duration("ttl", ttl))
	return c.token, nil
}

// CreateInvoice issues an invoice
func (c *Client) CreateInvoice(ctx context.Context, payload *model.InvoicePayload) (*InvoiceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("oblio: failed to encode invoice: %w", err)
	}

	var result InvoiceResult
	if err := c.call(ctx, "create invoice", func(token string) transport.RequestFunc {
		return jsonRequest(http.MethodPost, c.cfg.BaseURL+"/docs/invoice", body, token)
	}, &result); err != nil {
		return nil, err
	}
	if result.Link == "" || result.Number == "" {
		return nil, model.NewSubmissionError(ServiceName, "create invoice", http.StatusOK, "response has no invoice number or link")
	}

	c.logger.Info("invoice issued",
		zap.String("series", result.SeriesName),
		zap.String("number", result.Number.String()),
	)
	return &result, nil
}

// GetInvoice reads an issued invoice, including the total Oblio computed
func (c *Client) GetInvoice(ctx context.Context, series, number string) (*InvoiceDocument, error) {
	query := url.Values{}
	query.Set("cif", c.cfg.CIF)
	query.Set("seriesName", series)
	query.Set("number", number)
	endpoint := c.cfg.BaseURL + "/docs/invoice?" + query.Encode()

	var doc InvoiceDocument
	if err := c.call(ctx, "get invoice", func(token string) transport.RequestFunc {
		return func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			return req, nil
		}
	}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SendEInvoice submits an issued invoice to SPV. A response Oblio does not confirm is
// returned with a *model.SubmissionError.
func (c *Client) SendEInvoice(ctx context.Context, series, number string) (*EInvoiceResult, error) {
	form := url.Values{}
	form.Set("cif", c.cfg.CIF)
	form.Set("seriesName", series)
	form.Set("number", number)

	var result EInvoiceResult
	if err := c.call(ctx, "send einvoice", func(token string) transport.RequestFunc {
		return formRequest(http.MethodPost, c.cfg.BaseURL+"/docs/einvoice", form, token)
	}, &result); err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		return &result, model.NewSubmissionError(ServiceName, "send einvoice", http.StatusOK, result.Text)
	}
	return &result, nil
}

// Companies lists the companies the credentials can issue for
func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	var companies []Company
	if err := c.call(ctx, "list companies", func(token string) transport.RequestFunc {
		return func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/nomenclature/companies", nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			return req, nil
		}
	}, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// call authorizes, sends, checks the envelope and decodes its data into out.
// A 401 drops the cached token and retries once with a fresh one.
func (c *Client) call(ctx context.Context, operation string, build func(token string) transport.RequestFunc, out interface{}) error {
	var resp *transport.Response
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.Token(ctx)
		if err != nil {
			return err
		}
		resp, err = c.http.Do(ctx, build(token))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			break
		}
		c.invalidateToken()
	}

	if !resp.OK() {
		return model.NewSubmissionError(ServiceName, operation, resp.StatusCode, string(resp.Body))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("oblio: failed to decode %s response: %w", operation, err)
	}
	if env.Status != 0 && (env.Status < 200 || env.Status >= 300) {
		return model.NewSubmissionError(ServiceName, operation, env.Status, env.StatusMessage)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("oblio: failed to decode %s data: %w", operation, err)
	}
	return nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func formRequest(method, endpoint string, form url.Values, token string) transport.RequestFunc {
	encoded := form.Encode()
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}
}

func jsonRequest(method, endpoint string, body []byte, token string) transport.RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}
}

// parseSeconds accepts expires_in as a JSON number or a numeric string
func parseSeconds(raw json.RawMessage) int64 {
	s := strings.Trim(string(raw), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
