// Package trendyol talks to the Trendyol seller integration API
package trendyol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/fileutil"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
)

const (
	// ServiceName identifies Trendyol in errors and metrics
	ServiceName = "trendyol"

	DefaultBaseURL  = "https://apigw.trendyol.com"
	DefaultPageSize = 200
)

var ErrMissingCredentials = errors.New("trendyol: seller id, api key and api secret are required")

// Config holds the seller credentials
type Config struct {
	BaseURL   string
	SellerID  string
	APIKey    string
	APISecret string
	PageSize  int
}

// Client is a Trendyol seller API client
type Client struct {
	cfg    Config
	http   *transport.Client
	logger *zap.Logger
}

// NewClient creates a client; a nil logger disables logging
func NewClient(cfg Config, httpClient *transport.Client, logger *zap.Logger) (*Client, error) {
	if cfg.SellerID == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if httpClient == nil {
		httpClient = transport.New(ServiceName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}, nil
}

// FetchPage returns one page of orders. status filters by package status when not empty.
func (c *Client) FetchPage(ctx context.Context, page int, status string) (*model.OrderPage, error) {
	query := url.Values{}
	query.Set("size", strconv.Itoa(c.cfg.PageSize))
	query.Set("page", strconv.Itoa(page))
	if status != "" {
		query.Set("status", status)
	}
	endpoint := fmt.Sprintf("%s/integration/order/sellers/%s/orders?%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SellerID), query.Encode())

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, model.NewSubmissionError(ServiceName, "list orders", resp.StatusCode, string(resp.Body))
	}

	var result model.OrderPage
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("trendyol: failed to decode orders page %d: %w", page, err)
	}
	return &result, nil
}

// FetchOrders returns every order across all pages
func (c *Client) FetchOrders(ctx context.Context, status string) ([]model.Order, error) {
	var orders []model.Order
	for page := 0; ; page++ {
		result, err := c.FetchPage(ctx, page, status)
		if err != nil {
			return nil, err
		}
		orders = append(orders, result.Content...)

		c.logger.Debug("fetched orders page",
			zap.Int("page", page),
			zap.Int("total_pages", result.TotalPages),
			zap.Int("count", len(result.Content)),
		)

		if page+1 >= result.TotalPages || len(result.Content) == 0 {
			break
		}
	}

	c.logger.Info("fetched orders", zap.Int("count", len(orders)))
	return orders, nil
}

type invoiceLinkRequest struct {
	InvoiceLink       string `json:"invoiceLink"`
	ShipmentPackageID int64  `json:"shipmentPackageId"`
}

// SendInvoiceLink attaches an invoice link to a shipment package
func (c *Client) SendInvoiceLink(ctx context.Context, link string, packageID int64) error {
	body, err := json.Marshal(invoiceLinkRequest{InvoiceLink: link, ShipmentPackageID: packageID})
	if err != nil {
		return fmt.Errorf("trendyol: failed to encode invoice link: %w", err)
	}
	endpoint := fmt.Sprintf("%s/integration/sellers/%s/seller-invoice-links",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SellerID))

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.NewSubmissionError(ServiceName, "send invoice link", resp.StatusCode, string(resp.Body))
	}

	c.logger.Info("invoice link sent",
		zap.Int64("shipment_package_id", packageID),
		zap.String("invoice_link", link),
	)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)
	req.Header.Set("User-Agent", c.cfg.SellerID+" - SelfIntegration")
	req.Header.Set("Accept", "application/json")
}

// LoadOrdersFile reads an orders snapshot ({"content": [...]})
func LoadOrdersFile(path string) ([]model.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trendyol: failed to read orders file: %w", err)
	}

	var page model.OrderPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("trendyol: failed to decode orders file %s: %w", path, err)
	}
	return page.Content, nil
}

// SaveOrdersFile writes orders as a snapshot readable by LoadOrdersFile
func SaveOrdersFile(path string, orders []model.Order) error {
	if orders == nil {
		orders = []model.Order{}
	}
	return fileutil.WriteJSON(path, model.OrderPage{
		Page:          0,
		Size:          len(orders),
		TotalPages:    1,
		TotalElements: len(orders),
		Content:       orders,
	})
}
