package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/rtdbkit/httpclient/sse"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/resilience"
)

// Adapter is a configurable HTTP adapter with retry, circuit breaking,
// tracing and streaming support.
type Adapter struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	metrics    *observability.RequestMetrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the underlying *http.Client. The adapter's timeout
// is applied to non-streaming requests only if the client sets none.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) {
		if hc == nil {
			return
		}
		if hc.Timeout <= 0 {
			clone := *hc
			clone.Timeout = a.config.Timeout
			hc = &clone
		}
		a.httpClient = hc
	}
}

// WithRequestMetrics records a counter and a duration histogram per request.
func WithRequestMetrics(m *observability.RequestMetrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	c := &Adapter{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}

	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Do executes an HTTP request and returns the complete response.
// Configured retries apply to idempotent methods only.
func (c *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry != nil && isIdempotent(req.Method) {
		return resilience.Retry(ctx, *c.config.Retry, func() (*Response, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

// DoStream executes an HTTP request and returns a streaming response.
// The caller must close the returned StreamResponse when done.
// Retry and the circuit breaker are not applied to streaming requests.
func (c *Adapter) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	return c.doStream(ctx, req)
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Adapter) Unwrap() *http.Client {
	return c.httpClient
}

// Name returns the adapter name.
func (c *Adapter) Name() string {
	return c.config.Name
}

// IsAvailable reports whether the circuit breaker currently admits requests.
func (c *Adapter) IsAvailable(_ context.Context) bool {
	if c.cb != nil {
		return c.cb.State() != resilience.StateOpen
	}
	return true
}

// Close releases idle connections held by the adapter.
func (c *Adapter) Close(_ context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetConfig returns the adapter's configuration.
func (c *Adapter) GetConfig() Config {
	return c.config
}

// doOnce executes a single HTTP request through the circuit breaker.
func (c *Adapter) doOnce(ctx context.Context, req Request) (*Response, error) {
	if c.cb == nil {
		return c.executeRequest(ctx, req)
	}

	var resp *Response
	err := c.cb.Execute(func() error {
		var execErr error
		resp, execErr = c.executeRequest(ctx, req)
		return execErr
	})
	return resp, err
}

// executeRequest builds and sends the HTTP request.
func (c *Adapter) executeRequest(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
		attribute.String(observability.AttrHTTPMethod, req.Method),
		attribute.String("http.client", c.config.Name),
	)
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.RecordRequest(ctx, req.Method, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(observability.AttrHTTPURL, httpReq.URL.String()))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	status = strconv.Itoa(httpResp.StatusCode)
	span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, httpResp.StatusCode))

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	resp = &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(httpResp.StatusCode, body); classErr != nil {
		return resp, classErr
	}

	return resp, nil
}

// doStream builds and sends a streaming HTTP request.
func (c *Adapter) doStream(ctx context.Context, req Request) (_ *StreamResponse, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanStreamOpen,
		attribute.String(observability.AttrHTTPMethod, req.Method),
		attribute.String("http.client", c.config.Name),
	)
	defer func() { observability.EndSpan(span, err) }()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(observability.AttrHTTPURL, httpReq.URL.String()))

	// Same transport, no global timeout: ctx bounds the stream's lifetime.
	streamClient := &http.Client{
		Transport:     c.httpClient.Transport,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
	}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, ClassifyStatusCode(resp.StatusCode, body)
	}

	headers := flattenHeaders(resp.Header)

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return &StreamResponse{
			StatusCode: resp.StatusCode,
			Headers:    headers,
			SSE:        sse.NewReader(resp.Body),
			rawResp:    resp,
		}, nil
	}

	// Non-SSE streaming (ndjson, raw bytes, etc)
	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
		rawResp:    resp,
	}, nil
}

// buildRequest constructs an *http.Request from the adapter config and request.
func (c *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	// request-specific headers override defaults
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	observability.InjectHeaders(ctx, httpReq.Header.Set)

	return httpReq, nil
}

// classifyTransportError maps a failed round trip to a typed error.
// isIdempotent reports whether a request may be repeated without side effects.
// POST and PATCH are sent once even when retry is configured.
func isIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func classifyTransportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
