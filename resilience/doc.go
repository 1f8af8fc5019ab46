// Package resilience provides retry with exponential backoff and a circuit
// breaker for the non-streaming REST calls made by rtdbkit.
//
// Streaming connections are never retried; a dropped stream ends its
// sequence.
package resilience
