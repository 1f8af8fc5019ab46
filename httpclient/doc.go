// Package httpclient provides a configurable HTTP adapter with retry,
// circuit breaking, OpenTelemetry spans and streaming support.
//
// Streaming responses with a text/event-stream content type are exposed
// through the sse subpackage reader; other streams expose the raw body.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://example-db.firebaseio.com",
//	    Timeout: 30 * time.Second,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/users/123.json",
//	})
//
// # With Resilience
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://example-db.firebaseio.com",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("rtdb"),
//	})
//
// # Streaming
//
//	stream, err := client.DoStream(ctx, httpclient.Request{
//	    Method:  http.MethodGet,
//	    Path:    "/users.json",
//	    Headers: map[string]string{"Accept": "text/event-stream"},
//	})
//	defer stream.Close()
//	for {
//	    ev, err := stream.SSE.Next()
//	    ...
//	}
package httpclient
