package eventsource

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/rtdbkit/errors"
	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/internal/ssetest"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/resilience"
)

func sseHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, body)
	}
}

func newHTTP(t *testing.T, url string, opts ...Option) *ServerEvents {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	s, err := New(url, opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", url, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		code apperrors.ErrorCode
	}{
		{"empty", "", apperrors.ErrCodeMissingField},
		{"relative", "users.json", apperrors.ErrCodeInvalidInput},
		{"unsupported scheme", "ftp://example.com/x", apperrors.ErrCodeInvalidInput},
		{"no host", "http:///users.json", apperrors.ErrCodeInvalidInput},
		{"malformed", "http://[::1", apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.url)
			if err == nil {
				t.Fatal("expected error")
			}
			if s != nil {
				t.Error("expected nil adapter on error")
			}
			if !apperrors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestNew_InvalidHTTPConfig(t *testing.T) {
	_, err := New("http://localhost/x", WithHTTPConfig(httpclient.Config{
		Retry: &resilience.RetryConfig{MaxAttempts: -1},
	}))
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestNew_DoesNotConnect(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	s := newHTTP(t, srv.URL+"/users.json")
	if s.URL() != srv.URL+"/users.json" {
		t.Errorf("URL() = %q", s.URL())
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("expected no request before consumption, got %d", n)
	}
}

func TestHTTP_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("Cache-Control"); got != "no-cache" {
			t.Errorf("Cache-Control = %q", got)
		}
		if got := r.Header.Get("Last-Event-ID"); got != "42" {
			t.Errorf("Last-Event-ID = %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "rtdb" {
			t.Errorf("X-Client = %q", got)
		}
		sseHandler(": hello\n\n" +
			"event: keep-alive\ndata: null\n\n" +
			"event: put\ndata: {\"path\":\"/\",\"data\":null}\n\n" +
			"event: patch\ndata: null\n\n" +
			"data: plain\n\n")(w, r)
	}))
	defer srv.Close()

	s := newHTTP(t, srv.URL+"/users.json",
		WithLastEventID("42"),
		WithHeaders(map[string]string{"X-Client": "rtdb"}),
	)
	assertOutputs(t, collect(t, s), []output{
		{eventType: "put", data: strPtr(`{"path":"/","data":null}`)},
		{eventType: "patch"},
		{eventType: "message", data: strPtr("plain")},
	})
}

func TestHTTP_KeepAliveShown(t *testing.T) {
	srv := httptest.NewServer(sseHandler("event: keep-alive\ndata: null\n\n"))
	defer srv.Close()

	s := newHTTP(t, srv.URL)
	assertOutputs(t, collect(t, s, WithKeepAlive(true)), []output{
		{eventType: "keep-alive"},
	})
}

func TestHTTP_ConnectFailureReportedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := newHTTP(t, url)
	got := collect(t, s)
	if len(got) != 1 {
		t.Fatalf("expected exactly one element, got %+v", got)
	}
	if !httpclient.IsConnection(got[0].err) {
		t.Errorf("expected connection error, got %v", got[0].err)
	}
	if again := collect(t, s); len(again) != 0 {
		t.Errorf("expected finished stream, got %+v", again)
	}
}

func TestHTTP_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
	}))
	defer srv.Close()

	var errs []error
	newHTTP(t, srv.URL).Listen(context.Background(), nil, func(err error) {
		errs = append(errs, err)
	})
	if len(errs) != 1 || !httpclient.IsAuth(errs[0]) {
		t.Errorf("expected one auth error, got %v", errs)
	}
}

func TestHTTP_NotEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got := collect(t, newHTTP(t, srv.URL))
	if len(got) != 1 || !httpclient.IsStream(got[0].err) {
		t.Errorf("expected one stream error, got %+v", got)
	}
}

func blockingHandler(first string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, first)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}
}

func TestHTTP_CloseUnblocksRead(t *testing.T) {
	srv := httptest.NewServer(blockingHandler("event: put\ndata: 1\n\n"))
	defer srv.Close()

	s := newHTTP(t, srv.URL)
	received := make(chan struct{})
	done := make(chan []output)
	go func() {
		var got []output
		for e, err := range s.Stream(context.Background()) {
			got = append(got, output{eventType: e.Type, data: e.Data, err: err})
			if len(got) == 1 {
				close(received)
			}
		}
		done <- got
	}()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("first event not received")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case got := <-done:
		assertOutputs(t, got, []output{{eventType: "put", data: strPtr("1")}})
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock the read")
	}
}

func TestHTTP_ContextCancelEndsStream(t *testing.T) {
	srv := httptest.NewServer(blockingHandler("event: put\ndata: 1\n\n"))
	defer srv.Close()

	s := newHTTP(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []output)
	go func() {
		var got []output
		for e, err := range s.Stream(ctx) {
			got = append(got, output{eventType: e.Type, data: e.Data, err: err})
			cancel()
		}
		done <- got
	}()

	select {
	case got := <-done:
		assertOutputs(t, got, []output{{eventType: "put", data: strPtr("1")}})
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
}

func TestHTTP_LiveStream(t *testing.T) {
	srv := ssetest.NewServer()
	defer srv.Close()

	s := newHTTP(t, srv.URL+"/rooms.json")
	next, stop := iter.Pull2(s.Stream(context.Background()))
	defer stop()

	srv.Comment("connected")
	srv.Event("put", `{"path":"/","data":{"a":1}}`)
	e, err, ok := next()
	if !ok || err != nil || e.Type != "put" {
		t.Fatalf("first element = %+v, %v, %v", e, err, ok)
	}
	if r := srv.WaitConnected(2 * time.Second); r == nil || r.URL.Path != "/rooms.json" {
		t.Fatalf("unexpected request %v", r)
	}

	srv.KeepAlive()
	srv.Event("patch", "line1\nline2")
	e, err, ok = next()
	if !ok || err != nil || e.Type != "patch" || e.Payload() != "line1\nline2" {
		t.Fatalf("second element = %+v, %v, %v", e, err, ok)
	}

	srv.End()
	if e, err, ok = next(); ok {
		t.Errorf("expected end of stream, got %+v, %v", e, err)
	}
}

func TestHTTP_ReadFailureReportedOnce(t *testing.T) {
	srv := ssetest.NewServer()
	defer srv.Close()

	srv.Event("put", "1")
	srv.Abort()

	got := collect(t, newHTTP(t, srv.URL))
	if len(got) != 2 {
		t.Fatalf("expected event then error, got %+v", got)
	}
	assertOutputs(t, got[:1], []output{{eventType: "put", data: strPtr("1")}})
	if !httpclient.IsStream(got[1].err) {
		t.Errorf("expected stream error, got %v", got[1].err)
	}
}

func TestHTTP_ContextCancelReleasesConnection(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		blockingHandler("event: put\ndata: 1\n\n")(w, r)
		close(released)
	}))
	defer srv.Close()

	s := newHTTP(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for range s.Stream(ctx) {
		cancel()
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("connection still open after ctx cancel")
	}
	if got := collect(t, s); len(got) != 0 {
		t.Errorf("expected finished stream, got %+v", got)
	}
}

func TestHTTP_CancelWhileConsumerBusy(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		blockingHandler("event: put\ndata: 1\n\n")(w, r)
		close(released)
	}))
	defer srv.Close()

	s := newHTTP(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for range s.Stream(ctx) {
		cancel()
		// the consumer is still inside the loop body here
		select {
		case <-released:
		case <-time.After(2 * time.Second):
			t.Fatal("connection not released while the consumer was busy")
		}
	}
}

func TestHTTP_IncompleteFramesDropped(t *testing.T) {
	srv := httptest.NewServer(sseHandler("event: put\n\nevent: patch\ndata: partial"))
	defer srv.Close()

	if got := collect(t, newHTTP(t, srv.URL)); len(got) != 0 {
		t.Errorf("expected no elements, got %+v", got)
	}
}
