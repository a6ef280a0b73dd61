package internaltypes

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

// ConfigError reports missing or invalid settings. It is fatal to a cycle
// when raised before records are processed.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// TransportError is a network failure or retryable status that outlived
// every attempt.
type TransportError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed after %d retries for %s (last status %d)", e.Attempts, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteRejection is a non-retryable answer from the Graph API, including a
// container that finished processing with status ERROR.
type RemoteRejection struct {
	URL        string
	StatusCode int
	Detail     string
}

func (e *RemoteRejection) Error() string {
	if e.StatusCode == 0 {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Detail)
}

type TimeoutError struct {
	CreationID string
	LastStatus string
	After      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("processing timeout for container %s after %s (last=%s)", e.CreationID, e.After, e.LastStatus)
}

// PersistenceError wraps schedule read/write failures.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("schedule %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
