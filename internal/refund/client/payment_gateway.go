package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/course-settlement/internal/config"
	"github.com/tair/course-settlement/pkg/breaker"
	"github.com/tair/course-settlement/pkg/logger"
)

const maxGatewayBody = 1 << 20

// GatewayError is a non-2xx answer from the payment gateway
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// PaymentGatewayClient cancels card payments through the gateway REST API
type PaymentGatewayClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	breaker    *breaker.Breaker
}

// NewPaymentGatewayClient creates a new gateway client
func NewPaymentGatewayClient(cfg config.GatewayConfig) *PaymentGatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentGatewayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.SecretKey+":")),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker.New("payment-gateway", 5, 30*time.Second),
	}
}

type cancelRequest struct {
	CancelReason string `json:"cancelReason"`
	CancelAmount int64  `json:"cancelAmount"`
}

// Refund cancels amount of the payment. The response body is returned
// whenever one was read, including alongside a *GatewayError.
func (c *PaymentGatewayClient) Refund(ctx context.Context, paymentKey string, amount int64, reason string) ([]byte, error) {
	if reason == "" {
		reason = "customer refund"
	}
	body, err := json.Marshal(cancelRequest{CancelReason: reason, CancelAmount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cancel request: %w", err)
	}

	var raw []byte
	err = c.breaker.Call(func() error {
		var callErr error
		raw, callErr = c.cancel(ctx, paymentKey, body)
		return callErr
	}, isClientError)
	if err != nil {
		logger.Component(ctx, "payment-gateway").Warn().
			Err(err).
			Str("payment_key", paymentKey).
			Int64("amount", amount).
			Msg("Gateway cancel failed")
	}
	return raw, err
}

func (c *PaymentGatewayClient) cancel(ctx context.Context, paymentKey string, body []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s/cancel", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build cancel request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &GatewayError{StatusCode: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			gwErr.Code = payload.Code
			gwErr.Message = payload.Message
		}
		return raw, gwErr
	}
	return raw, nil
}

// isClientError keeps rejected cancels from tripping the breaker
func isClientError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500
}
