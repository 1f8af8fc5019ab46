package rtdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/rtdbkit/errors"
	"github.com/kbukum/rtdbkit/eventsource"
	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/validation"
	"github.com/kbukum/rtdbkit/version"
)

const (
	componentName = "rtdb"
	jsonSuffix    = ".json"
)

// Client addresses one location of the database. Clients derived with At
// or WithParams share the parent's HTTP adapter.
type Client struct {
	root     url.URL
	segments []string
	query    url.Values

	cfg        Config
	http       *httpclient.Adapter
	log        *logger.Logger
	streamOpts []eventsource.Option

	// shared by every client derived from the same root
	closed *atomic.Bool
}

type clientOptions struct {
	log        *logger.Logger
	httpOpts   []httpclient.Option
	streamOpts []eventsource.Option
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger. Defaults to the "rtdb" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

// WithHTTPOptions passes options to the underlying HTTP adapter.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *clientOptions) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithStreamOptions sets default options for WithRealtimeEvents.
func WithStreamOptions(opts ...eventsource.Option) Option {
	return func(o *clientOptions) { o.streamOpts = append(o.streamOpts, opts...) }
}

// New creates a client for rawURL with default settings.
func New(rawURL string, opts ...Option) (*Client, error) {
	return NewFromConfig(Config{URL: rawURL}, opts...)
}

// NewFromConfig creates a client from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := validation.Endpoint("url", cfg.URL); err != nil {
		return nil, err
	}
	if err := validation.Validate(&cfg); err != nil {
		return nil, err
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, apperrors.InvalidInput("url", err.Error())
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(componentName)
	}

	httpCfg := httpclient.Config{
		Name:           componentName,
		Timeout:        cfg.Timeout,
		Headers:        map[string]string{"User-Agent": version.UserAgent("rtdbkit")},
		CircuitBreaker: cfg.CircuitBreaker,
	}
	if cfg.Retry != nil {
		retry := *cfg.Retry
		if retry.RetryIf == nil {
			retry.RetryIf = httpclient.IsRetryable
		}
		httpCfg.Retry = &retry
	}
	adapter, err := httpclient.New(httpCfg, o.httpOpts...)
	if err != nil {
		return nil, apperrors.InvalidInput("http", err.Error()).WithCause(err)
	}

	query := u.Query()
	root := url.URL{Scheme: u.Scheme, Host: u.Host, User: u.User}

	return &Client{
		root:       root,
		segments:   splitPath(u.Path),
		query:      query,
		cfg:        cfg,
		http:       adapter,
		log:        o.log,
		streamOpts: o.streamOpts,
		closed:     new(atomic.Bool),
	}, nil
}

// At returns a client for path below the current location.
// Empty segments are ignored; the query is not carried over.
func (c *Client) At(path string) *Client {
	child := c.clone()
	child.segments = append(slices.Clone(c.segments), splitPath(path)...)
	child.query = url.Values{}
	return child
}

// URL returns the REST address of the location, including the query.
func (c *Client) URL() string {
	u := c.root
	u.Path = "/" + strings.Join(c.segments, "/") + jsonSuffix
	u.RawQuery = c.query.Encode()
	return u.String()
}

// Set pushes value as a new child with a generated key (POST).
// The server replies with the generated name.
func (c *Client) Set(ctx context.Context, value any) ([]byte, error) {
	return c.call(ctx, http.MethodPost, value)
}

// SetAt writes value at the location, replacing what was there (PUT).
func (c *Client) SetAt(ctx context.Context, value any) ([]byte, error) {
	return c.call(ctx, http.MethodPut, value)
}

// Update merges the children of value into the location (PATCH).
func (c *Client) Update(ctx context.Context, value any) ([]byte, error) {
	return c.call(ctx, http.MethodPatch, value)
}

// Get reads the location.
func (c *Client) Get(ctx context.Context) ([]byte, error) {
	return c.call(ctx, http.MethodGet, nil)
}

// GetAsString reads the location and returns the raw JSON as a string.
func (c *Client) GetAsString(ctx context.Context) (string, error) {
	body, err := c.Get(ctx)
	return string(body), err
}

// Delete removes the location.
func (c *Client) Delete(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodDelete, nil)
	return err
}

// WithRealtimeEvents opens an event stream on the location. Nothing is
// sent until the stream is consumed.
func (c *Client) WithRealtimeEvents(opts ...eventsource.Option) (*eventsource.ServerEvents, error) {
	if c.closed.Load() {
		return nil, apperrors.Closed("rtdb client")
	}
	all := []eventsource.Option{
		eventsource.WithLogger(c.log),
		eventsource.WithHTTPConfig(httpclient.Config{
			Name:    componentName + ".stream",
			Timeout: c.cfg.Timeout,
			Headers: c.http.GetConfig().Headers,
		}),
	}
	all = append(all, c.streamOpts...)
	all = append(all, opts...)
	return eventsource.New(c.URL(), all...)
}

// Close releases idle connections of the shared adapter. It closes every
// client derived from the same root; later calls fail with a CLOSED error.
// Streams already opened are not affected.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.http.Close(context.Background())
}

func (c *Client) call(ctx context.Context, method string, value any) (_ []byte, err error) {
	if c.closed.Load() {
		return nil, apperrors.Closed("rtdb client")
	}
	target := c.URL()
	ctx, span := observability.StartSpan(ctx, observability.SpanDatabaseCall,
		attribute.String(observability.AttrHTTPMethod, method),
		attribute.String("rtdb.path", "/"+strings.Join(c.segments, "/")),
	)
	defer func() { observability.EndSpan(span, err) }()

	req := httpclient.Request{Method: method, Path: target}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, apperrors.InvalidFormat("value", "JSON-encodable value").WithCause(err)
		}
		req.Body = data
		req.Headers = map[string]string{"Content-Type": "application/json"}
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	fields := logger.Fields(
		logger.FieldMethod, method,
		logger.FieldEndpoint, target,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		c.log.WithError(err).Debug("rtdb call failed", fields)
		return nil, err
	}
	c.log.Debug("rtdb call", fields)
	return resp.Body, nil
}

func (c *Client) clone() *Client {
	cp := *c
	cp.segments = slices.Clone(c.segments)
	cp.query = cloneValues(c.query)
	return &cp
}

// splitPath splits p on "/" dropping empty segments and a trailing ".json".
func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	if n := len(out); n > 0 {
		last := strings.TrimSuffix(out[n-1], jsonSuffix)
		if last == "" {
			out = out[:n-1]
		} else {
			out[n-1] = last
		}
	}
	return out
}
