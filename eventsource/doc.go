// Package eventsource consumes a Server-Sent Events endpoint and exposes
// it as a normalized sequence of (event type, optional payload) pairs.
//
// Comments are dropped, "keep-alive" events are suppressed unless the
// caller asks for them, and a payload of exactly "null" is reported as
// absent. Transport errors are delivered in-band and never end the stream.
//
// # Lazy sequence
//
//	events, err := eventsource.New("https://example-db.firebaseio.com/users.json")
//	if err != nil {
//	    return err
//	}
//	defer events.Close()
//
//	for ev, err := range events.Stream(ctx) {
//	    if err != nil {
//	        log.Printf("stream error: %v", err)
//	        continue
//	    }
//	    fmt.Println(ev.Type, ev.Payload())
//	}
//
// # Callbacks
//
//	events.Listen(ctx,
//	    func(eventType string, data *string) { ... },
//	    func(err error) { ... },
//	)
package eventsource
