// Package sse provides a Server-Sent Events reader that surfaces both
// dispatched events and comment lines.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxLineSize = 1 << 20

// Event represents a single record read from a text/event-stream body.
// A record is either a dispatched event or a comment line.
type Event struct {
	// Event is the SSE event type (from "event:" line). Empty for data-only events.
	Event string
	// Data is the event payload (from "data:" line(s)). Multi-line data is joined with newlines.
	Data string
	// ID is the event ID (from "id:" line).
	ID string
	// Retry is the reconnection time requested by the server (from "retry:" line).
	Retry time.Duration
	// Comment holds the text of a comment line. Set only for comment records.
	Comment string

	comment bool
}

// IsComment reports whether the record came from a comment line.
func (e *Event) IsComment() bool {
	return e.comment
}

// NewComment creates a comment record.
func NewComment(text string) *Event {
	return &Event{Comment: text, comment: true}
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next SSE record. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser

	// partially assembled event, kept across comment records
	cur     Event
	hasData bool
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{
		scanner: scanner,
		body:    body,
	}
}

// Next returns the next SSE record. Comments are returned as soon as they
// are read; an event interrupted by a comment keeps its fields.
func (r *reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		// Blank line ends the block; only blocks with data are dispatched.
		if line == "" {
			if r.hasData {
				return r.dispatch(), nil
			}
			r.reset()
			continue
		}

		if strings.HasPrefix(line, ":") {
			return NewComment(stripLeadingSpace(line[1:])), nil
		}

		field, value := parseSSELine(line)
		switch field {
		case "data":
			if r.hasData {
				r.cur.Data += "\n" + value
			} else {
				r.cur.Data = value
				r.hasData = true
			}
		case "event":
			r.cur.Event = value
		case "id":
			r.cur.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				r.cur.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// An unterminated block is incomplete and dropped.
	r.reset()
	return nil, io.EOF
}

// dispatch returns the assembled event and resets the assembly state.
func (r *reader) dispatch() *Event {
	ev := r.cur
	r.reset()
	return &ev
}

func (r *reader) reset() {
	r.cur = Event{}
	r.hasData = false
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseSSELine parses a single SSE line into field and value.
func parseSSELine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], stripLeadingSpace(line[idx+1:])
}

// stripLeadingSpace removes a single leading space, as the SSE grammar requires.
func stripLeadingSpace(s string) string {
	if s != "" && s[0] == ' ' {
		return s[1:]
	}
	return s
}
