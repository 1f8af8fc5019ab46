// Package rtdb is a client for Realtime Database style REST endpoints:
// JSON documents addressed by path, with query parameters for ordering
// and filtering, and a server-sent events stream for live updates.
//
//	db, err := rtdb.New("https://example-db.firebaseio.com")
//	users := db.At("users")
//
//	body, err := users.At("alice").Get(ctx)
//
//	top, err := users.WithParams().OrderBy("score").LimitToLast(10).Finish()
//
//	events, err := users.WithRealtimeEvents()
//	defer events.Close()
//	for ev, err := range events.Stream(ctx) { ... }
//
// Response bodies are returned as raw bytes; decoding is left to the caller.
package rtdb
