package eventsource

import (
	"maps"

	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/version"
)

type options struct {
	log         *logger.Logger
	httpConfig  httpclient.Config
	httpOpts    []httpclient.Option
	headers     map[string]string
	metrics     *observability.StreamMetrics
	lastEventID string
}

func defaultOptions() options {
	return options{
		httpConfig: httpclient.Config{
			Name:    componentName,
			Headers: map[string]string{"User-Agent": version.UserAgent("rtdbkit")},
		},
	}
}

// Option configures a ServerEvents.
type Option func(*options)

// WithLogger sets the logger. Defaults to the "eventsource" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithHTTPConfig sets the configuration of the underlying HTTP adapter.
// Retry and circuit breaker settings do not apply to the stream itself.
func WithHTTPConfig(cfg httpclient.Config, opts ...httpclient.Option) Option {
	return func(o *options) {
		o.httpConfig = cfg
		o.httpOpts = opts
	}
}

// WithHeaders adds headers sent when the stream is opened.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		maps.Copy(o.headers, headers)
	}
}

// WithMetrics records connection, event, filter and error counts.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLastEventID sends Last-Event-ID when the stream is opened.
func WithLastEventID(id string) Option {
	return func(o *options) {
		o.lastEventID = id
	}
}

type streamOptions struct {
	keepAlive bool
}

// StreamOption configures a single consumption of the stream.
type StreamOption func(*streamOptions)

// WithKeepAlive controls whether keep-alive events reach the consumer.
// They are suppressed by default.
func WithKeepAlive(show bool) StreamOption {
	return func(o *streamOptions) {
		o.keepAlive = show
	}
}

func applyStreamOptions(opts []StreamOption) streamOptions {
	var so streamOptions
	for _, opt := range opts {
		opt(&so)
	}
	return so
}
