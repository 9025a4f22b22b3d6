package types

import "fmt"

// NetworkError is a transient failure talking to the remote source. Fetches
// failing with it are retried with backoff.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SourceError is a fatal answer from the remote source (bad request,
// not found, application-level failure). It is never retried.
type SourceError struct {
	StatusCode int
	Message    string
}

func (e *SourceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("source error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source error (status %d)", e.StatusCode)
}

// ParseError is a malformed response body. It is never retried.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
