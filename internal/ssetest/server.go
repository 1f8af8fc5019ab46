// Package ssetest provides a scriptable text/event-stream server for tests.
package ssetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

type frame struct {
	text  string
	end   bool
	abort bool
}

// Server streams frames queued by the test to the connected client.
// Frames queued before a client connects are delivered once it does.
type Server struct {
	*httptest.Server

	frames   chan frame
	requests chan *http.Request
	done     chan struct{}
	once     sync.Once
}

// NewServer starts a Server.
func NewServer() *Server {
	s := &Server{
		frames:   make(chan frame, 64),
		requests: make(chan *http.Request, 16),
		done:     make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	select {
	case s.requests <- r:
	default:
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case f := <-s.frames:
			switch {
			case f.abort:
				// drops the connection without terminating the body
				panic(http.ErrAbortHandler)
			case f.end:
				return
			}
			_, _ = fmt.Fprint(w, f.text)
			flusher.Flush()
		}
	}
}

// Event queues an event. Multi-line data is sent as several data lines.
func (s *Server) Event(eventType, data string) {
	var b strings.Builder
	if eventType != "" {
		fmt.Fprintf(&b, "event: %s\n", eventType)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	s.frames <- frame{text: b.String()}
}

// Comment queues a comment line.
func (s *Server) Comment(text string) {
	s.frames <- frame{text: ": " + text + "\n\n"}
}

// KeepAlive queues a keep-alive event with a null payload.
func (s *Server) KeepAlive() {
	s.Event("keep-alive", "null")
}

// Raw queues text verbatim.
func (s *Server) Raw(text string) {
	s.frames <- frame{text: text}
}

// End finishes the current response cleanly.
func (s *Server) End() {
	s.frames <- frame{end: true}
}

// Abort drops the current connection mid-stream.
func (s *Server) Abort() {
	s.frames <- frame{abort: true}
}

// Requests delivers each request once its response headers are sent.
func (s *Server) Requests() <-chan *http.Request {
	return s.requests
}

// WaitConnected returns the next connected request or nil after timeout.
func (s *Server) WaitConnected(timeout time.Duration) *http.Request {
	select {
	case r := <-s.requests:
		return r
	case <-time.After(timeout):
		return nil
	}
}

// Close stops open streams and shuts the server down.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.done)
		s.Server.Close()
	})
}
