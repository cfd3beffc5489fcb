package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses and success=false envelopes.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassThrottled represents 429 Too Many Requests.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents response bodies that are not valid JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is a failed catalog API request.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// RetryAfter is the server's Retry-After hint, 0 if none was sent.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("catalog %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassOf returns the ErrorClass of err, or "" if err is not an APIError.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// retryAfter returns the Retry-After hint carried by err.
func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork, ErrorClassThrottled:
		return true
	default:
		// client and decode errors repeat identically on retry
		return false
	}
}
