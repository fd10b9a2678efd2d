// Package gateway talks to the Razorpay payments API and verifies its signatures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/zap"

	"github.com/tripnest/backend/pkg/apperror"
)

// Config holds API credentials and transport limits.
type Config struct {
	KeyID            string
	KeySecret        string
	WebhookSecret    string
	BaseURL          string
	Currency         string
	Timeout          time.Duration
	BreakerThreshold int64
}

// OrderRequest describes a new payment order.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       Notes
}

// Order is a created gateway order. ClientKey is the public key the checkout widget needs.
type Order struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	ClientKey string `json:"-"`
}

// Refund is the gateway's refund receipt. Raw keeps the full response body.
type Refund struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"-"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client is the Razorpay REST client. Calls are bounded by Config.Timeout and
// pass through a circuit breaker.
type Client struct {
	cfg    Config
	http   *circuit.HTTPClient
	logger *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:    cfg,
		http:   circuit.NewHTTPClient(cfg.Timeout, cfg.BreakerThreshold, hc),
		logger: logger,
	}
}

// Currency is the default order currency.
func (c *Client) Currency() string { return c.cfg.Currency }

// CreateOrder creates a payment order for a positive amount in minor units.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinor <= 0 {
		return nil, apperror.Validation("order amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = c.cfg.Currency
	}
	body := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}
	var order Order
	if _, err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	order.ClientKey = c.cfg.KeyID
	c.logger.Info("gateway order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("receipt", req.Receipt))
	return &order, nil
}

// Refund refunds amountMinor of a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amountMinor int64, notes Notes) (*Refund, error) {
	if paymentID == "" {
		return nil, apperror.Validation("payment id is required")
	}
	body := map[string]interface{}{"amount": amountMinor}
	if len(notes) > 0 {
		body["notes"] = notes
	}
	var refund Refund
	raw, err := c.do(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentID)+"/refund", body, &refund)
	if err != nil {
		return nil, err
	}
	refund.Raw = raw
	c.logger.Info("gateway refund created",
		zap.String("refund_id", refund.ID),
		zap.String("payment_id", paymentID),
		zap.Int64("amount", refund.Amount))
	return &refund, nil
}

// VerifyPayment checks a checkout callback signature.
func (c *Client) VerifyPayment(orderID, paymentID, signature string) error {
	return VerifyPaymentSignature(c.cfg.KeySecret, orderID, paymentID, signature)
}

// VerifyWebhook checks a webhook delivery signature.
func (c *Client) VerifyWebhook(body []byte, signature string) error {
	return VerifyWebhookSignature(c.cfg.WebhookSecret, body, signature)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, apperror.Internal("encode gateway request", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Internal("build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", zap.String("path", path), zap.Error(err))
		return nil, apperror.Gateway("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.Gateway("read gateway response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		c.logger.Warn("gateway rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", ae.Error.Code),
			zap.String("description", ae.Error.Description))
		return nil, apperror.Gateway(
			fmt.Sprintf("payment gateway rejected request (%d)", resp.StatusCode),
			fmt.Errorf("%s: %s", ae.Error.Code, ae.Error.Description))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, apperror.Gateway("decode gateway response", err)
	}
	return raw, nil
}
