// Package errors provides the structured error type used by rtdbkit for
// construction and validation failures. Each AppError carries a
// machine-readable code, a message and optional details.
//
// Transport failures observed while streaming are not converted to
// AppError; they surface as *httpclient.Error values.
package errors
