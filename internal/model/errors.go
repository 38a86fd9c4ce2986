package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a queue item cannot move to the requested state.
	ErrInvalidTransition = errors.New("invalid queue transition")
)

// FetchError wraps a failed page retrieval. StatusCode is zero for
// transport failures, so retry logic and operators can tell a removed page
// from a network problem.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string        // e.g. "404 Not Found"
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionError is an AI extraction failure. It is always recoverable
// through heuristic extraction.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "ai extraction: " + e.Reason
}

// PersistenceError wraps a store write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
