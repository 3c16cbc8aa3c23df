// Package http provides an outbound HTTP client with retries, a circuit breaker and OTel instrumentation
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "blendguard/pkg/errors"
	"blendguard/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// APIError represents a non-2xx response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Unwrap classifies the status so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimitExceeded
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return apperrors.ErrAuthenticationFailed
	case e.StatusCode >= 500:
		return apperrors.ErrUpstream
	default:
		return apperrors.ErrInvalidRequest
	}
}

// Options tunes the resilience pipeline
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BreakerDelay   time.Duration
}

// DefaultOptions mirrors what the alert channels use in production
var DefaultOptions = Options{
	Timeout:        5 * time.Second,
	MaxRetries:     3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BreakerDelay:   10 * time.Second,
}

// Client is a wrapper around http.Client with resilience
type Client struct {
	client   *http.Client
	baseURL  string
	pipeline failsafe.Executor[*http.Response]

	tracer      trace.Tracer
	reqCounter  metric.Int64Counter
	errCounter  metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// NewClient creates a new HTTP client rooted at baseURL
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = DefaultOptions.InitialBackoff
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = DefaultOptions.MaxBackoff
	}
	if opts.BreakerDelay == 0 {
		opts.BreakerDelay = DefaultOptions.BreakerDelay
	}

	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(opts.InitialBackoff, opts.MaxBackoff).
		WithMaxRetries(opts.MaxRetries).
		ReturnLastFailure().
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(opts.BreakerDelay).
		Build()

	meter := telemetry.GetMeter("http-client")
	reqCounter, _ := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Total number of outbound HTTP requests"))
	errCounter, _ := meter.Int64Counter("http_client_errors_total",
		metric.WithDescription("Total number of outbound HTTP errors"))
	latencyHist, _ := meter.Float64Histogram("http_client_request_duration_seconds",
		metric.WithDescription("Outbound HTTP request latency in seconds"))

	return &Client{
		client:      &http.Client{Timeout: opts.Timeout},
		baseURL:     baseURL,
		pipeline:    failsafe.With[*http.Response](retryPolicy, breaker),
		tracer:      telemetry.GetTracer("http-client"),
		reqCounter:  reqCounter,
		errCounter:  errCounter,
		latencyHist: latencyHist,
	}
}

// PostJSON sends body as JSON and returns the response body
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	// The body is re-created per attempt since retries consume it
	return c.do(ctx, http.MethodPost, path, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, build func() (*http.Request, error)) ([]byte, error) {
	start := time.Now()

	// path can carry credentials (bot tokens), so spans and metrics use the method only
	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithAttributes(attribute.String("http.method", method)),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))

	resp, err := c.pipeline.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		return c.client.Do(req.WithContext(ctx))
	})

	c.reqCounter.Add(ctx, 1, attrs)
	c.latencyHist.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		c.errCounter.Add(ctx, 1, attrs)
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("request failed: %w: %w", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.errCounter.Add(ctx, 1, attrs)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}
