package eventsource

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	apperrors "github.com/kbukum/rtdbkit/errors"
	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/validation"
)

const componentName = "eventsource"

// ServerEvents adapts an event stream into normalized events.
//
// A ServerEvents is meant for a single consumer at a time. It owns its
// transport; Close releases it.
type ServerEvents struct {
	url       string
	transport Transport
	log       *logger.Logger
	metrics   *observability.StreamMetrics

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a ServerEvents for the SSE endpoint at url. The URL is
// validated here; no connection is made until the stream is consumed.
func New(url string, opts ...Option) (*ServerEvents, error) {
	if err := validation.Endpoint("url", url); err != nil {
		return nil, err
	}

	o := resolveOptions(opts)
	client, err := httpclient.New(o.httpConfig, o.httpOpts...)
	if err != nil {
		return nil, apperrors.InvalidInput("http", err.Error()).WithCause(err)
	}

	s := newServerEvents(newHTTPTransport(client, url, o), o)
	s.url = url
	return s, nil
}

// NewWithTransport creates a ServerEvents over an existing transport.
func NewWithTransport(t Transport, opts ...Option) (*ServerEvents, error) {
	if t == nil {
		return nil, apperrors.MissingField("transport")
	}
	return newServerEvents(t, resolveOptions(opts)), nil
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(componentName)
	}
	return o
}

func newServerEvents(t Transport, o options) *ServerEvents {
	return &ServerEvents{
		transport: t,
		log:       o.log,
		metrics:   o.metrics,
	}
}

// URL returns the endpoint the stream was created for. Empty for streams
// built with NewWithTransport.
func (s *ServerEvents) URL() string {
	return s.url
}

// aborter is implemented by transports that can tear their connection
// down from another goroutine.
type aborter interface {
	abort()
}

// Stream returns the events as a lazy sequence. Each element is either an
// event or a transport error; errors do not end the sequence.
//
// The sequence ends when the transport reports end of stream, when ctx is
// done, when the consumer stops ranging, or after Close. Cancelling ctx
// while the sequence is being consumed closes the connection. After a
// consumer stops ranging, calling Stream again continues from the same
// connection.
func (s *ServerEvents) Stream(ctx context.Context, opts ...StreamOption) iter.Seq2[Event, error] {
	so := applyStreamOptions(opts)
	return func(yield func(Event, error) bool) {
		// Cancelling ctx releases the connection even while the consumer
		// is busy between pulls.
		if a, ok := s.transport.(aborter); ok {
			stop := context.AfterFunc(ctx, a.abort)
			defer stop()
		}
		for {
			if s.closed.Load() || ctx.Err() != nil {
				return
			}

			raw, err := s.transport.Next(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || s.closed.Load() || ctx.Err() != nil {
					return
				}
				s.metrics.RecordError(ctx)
				if !yield(Event{}, err) {
					return
				}
				continue
			}

			ev, ok := Normalize(raw, so.keepAlive)
			if !ok {
				s.metrics.RecordFiltered(ctx, filterKind(raw))
				continue
			}
			s.metrics.RecordEvent(ctx, ev.Type)
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Listen drains the stream, calling onEvent for every event and onError for
// every error. It returns when the stream ends; errors never stop it.
// Either handler may be nil.
func (s *ServerEvents) Listen(ctx context.Context, onEvent func(eventType string, data *string), onError func(error), opts ...StreamOption) {
	for ev, err := range s.Stream(ctx, opts...) {
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		if onEvent != nil {
			onEvent(ev.Type, ev.Data)
		}
	}
}

// Events drains the stream on a goroutine and delivers it on the returned
// channel, which is closed when the stream ends. The channel is unbuffered:
// a caller that stops receiving must cancel ctx, otherwise the goroutine
// stays blocked on its next send.
func (s *ServerEvents) Events(ctx context.Context, opts ...StreamOption) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		for ev, err := range s.Stream(ctx, opts...) {
			select {
			case out <- Result{Event: ev, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close tears down the connection. Further consumption yields nothing.
func (s *ServerEvents) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.transport.Close()
		s.log.Debug("event stream closed", logger.Fields(logger.FieldEndpoint, s.url))
	})
	return s.closeErr
}

func filterKind(raw RawEvent) string {
	if raw.IsComment() {
		return "comment"
	}
	return EventTypeKeepAlive
}
