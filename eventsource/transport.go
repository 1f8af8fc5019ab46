package eventsource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/observability"
)

// Transport produces raw records from an event stream.
//
// Next blocks until a record is available. It returns io.EOF once the
// stream has ended; any other error is reported to the consumer and Next
// is called again.
type Transport interface {
	Next(ctx context.Context) (RawEvent, error)
	Close() error
}

// httpTransport reads an SSE endpoint over a single HTTP connection.
// It connects on the first Next and never reconnects: after a connect or
// read failure has been reported once, Next returns io.EOF.
type httpTransport struct {
	client      *httpclient.Adapter
	url         string
	headers     map[string]string
	lastEventID string
	id          string
	log         *logger.Logger
	metrics     *observability.StreamMetrics

	// connCtx bounds every connection attempt; cancelled by Close.
	connCtx context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	stream     *httpclient.StreamResponse
	cancelConn context.CancelFunc
	done       bool
	closed     bool
}

func newHTTPTransport(client *httpclient.Adapter, url string, o options) *httpTransport {
	id := uuid.NewString()
	connCtx, cancel := context.WithCancel(context.Background())
	return &httpTransport{
		client:      client,
		url:         url,
		headers:     o.headers,
		lastEventID: o.lastEventID,
		id:          id,
		log: o.log.WithFields(logger.Fields(
			logger.FieldConnectionID, id,
			logger.FieldEndpoint, url,
		)),
		metrics: o.metrics,
		connCtx: connCtx,
		cancel:  cancel,
	}
}

// Next returns the next record from the stream.
func (t *httpTransport) Next(ctx context.Context) (RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return RawEvent{}, err
	}

	stream, err := t.current(ctx)
	if err != nil {
		return RawEvent{}, err
	}

	// A pending read cannot observe ctx, so cancelling it tears the
	// connection down.
	stop := context.AfterFunc(ctx, t.abort)
	ev, err := stream.SSE.Next()
	stop()

	if err != nil {
		if ctx.Err() != nil {
			return RawEvent{}, ctx.Err()
		}
		if errors.Is(err, io.EOF) || t.isDone() {
			t.log.Debug("event stream ended")
			t.finish()
			return RawEvent{}, io.EOF
		}
		t.log.Warn("event stream read failed", logger.ErrorFields("read", err))
		t.finish()
		return RawEvent{}, httpclient.NewStreamError(err)
	}

	if ev.IsComment() {
		return NewRawComment(ev.Comment), nil
	}
	eventType := ev.Event
	if eventType == "" {
		eventType = EventTypeMessage
	}
	return RawEvent{Type: eventType, Data: ev.Data, ID: ev.ID}, nil
}

// current returns the open stream, connecting if needed. It returns io.EOF
// once the transport is finished.
func (t *httpTransport) current(ctx context.Context) (*httpclient.StreamResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.done {
		return nil, io.EOF
	}
	if t.stream != nil {
		return t.stream, nil
	}

	stream, err := t.connect(ctx)
	if err != nil {
		t.done = true
		if t.connCtx.Err() != nil {
			return nil, io.EOF
		}
		t.log.Warn("event stream connect failed", logger.ErrorFields("connect", err))
		return nil, err
	}
	if !stream.IsSSE() {
		_ = stream.Close()
		t.cancelConn()
		t.cancelConn = nil
		t.done = true
		err := httpclient.NewStreamError(errors.New("response is not text/event-stream: " + stream.Headers["Content-Type"]))
		t.log.Warn("event stream connect failed", logger.ErrorFields("connect", err))
		return nil, err
	}

	t.stream = stream
	t.metrics.RecordConnection(context.Background(), 1)
	t.log.Debug("event stream connected")
	return stream, nil
}

func (t *httpTransport) connect(ctx context.Context) (*httpclient.StreamResponse, error) {
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	for k, v := range t.headers {
		headers[k] = v
	}
	if t.lastEventID != "" {
		headers["Last-Event-ID"] = t.lastEventID
	}

	// The connection outlives this call but must stop if ctx is cancelled
	// while the handshake is in flight.
	connCtx, cancel := context.WithCancel(t.connCtx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	stream, err := t.client.DoStream(connCtx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    t.url,
		Headers: headers,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	t.cancelConn = cancel
	return stream, nil
}

func (t *httpTransport) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done || t.closed
}

// abort ends the stream from another goroutine. A connect in flight is
// cancelled through its own context.
func (t *httpTransport) abort() {
	t.finish()
}

// finish tears the connection down and marks the transport as ended.
func (t *httpTransport) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.release()
}

// release must be called with mu held.
func (t *httpTransport) release() {
	if t.stream == nil {
		return
	}
	_ = t.stream.Close()
	t.stream = nil
	if t.cancelConn != nil {
		t.cancelConn()
		t.cancelConn = nil
	}
	t.metrics.RecordConnection(context.Background(), -1)
	t.log.Debug("event stream disconnected")
}

// Close tears the connection down. Safe to call more than once.
func (t *httpTransport) Close() error {
	// Cancel first so an in-flight connect releases mu.
	t.cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.release()
	return nil
}
