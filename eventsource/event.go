package eventsource

// Well-known event types and payload sentinels.
const (
	// EventTypeKeepAlive is the heartbeat event suppressed by default.
	EventTypeKeepAlive = "keep-alive"
	// EventTypeMessage is the type given to events without an "event:" line.
	EventTypeMessage = "message"
	// NullData is the payload that normalizes to an absent payload.
	NullData = "null"
)

// RawEvent is a record as produced by a Transport: either an event with a
// type and a data string, or a comment.
type RawEvent struct {
	// Type is the event type.
	Type string
	// Data is the raw payload, untouched.
	Data string
	// ID is the last event id reported by the server, if any.
	ID string
	// Comment holds the comment text for comment records.
	Comment string

	comment bool
}

// NewRawEvent creates an event record.
func NewRawEvent(eventType, data string) RawEvent {
	return RawEvent{Type: eventType, Data: data}
}

// NewRawComment creates a comment record.
func NewRawComment(text string) RawEvent {
	return RawEvent{Comment: text, comment: true}
}

// IsComment reports whether r is a comment record.
func (r RawEvent) IsComment() bool {
	return r.comment
}

// Event is a normalized event. Data is nil when the server sent "null".
type Event struct {
	Type string
	Data *string
}

// HasData reports whether the event carries a payload.
func (e Event) HasData() bool {
	return e.Data != nil
}

// Payload returns the payload or the empty string when absent.
func (e Event) Payload() string {
	if e.Data == nil {
		return ""
	}
	return *e.Data
}

// Result is one element of a channel-mode stream: an event or an error.
type Result struct {
	Event Event
	Err   error
}

// Normalize applies the stream filter to a single raw record. It returns
// false for records that must not reach the consumer: comments, and
// keep-alive events unless keepAlive is set.
func Normalize(raw RawEvent, keepAlive bool) (Event, bool) {
	if raw.IsComment() {
		return Event{}, false
	}
	if raw.Type == EventTypeKeepAlive && !keepAlive {
		return Event{}, false
	}
	if raw.Data == NullData {
		return Event{Type: raw.Type}, true
	}
	data := raw.Data
	return Event{Type: raw.Type, Data: &data}, true
}
