package model

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy for a sync cycle. Per-entry and per-file failures are
// recoverable and never abort the cycle; state store failures abort the
// whole cycle without committing partial updates.
var (
	ErrMalformedEntry    = errors.New("malformed entry")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrStateStore        = errors.New("state store failure")
	ErrGenerator         = errors.New("generator failure")
)

// MalformedEntryError describes a skipped entry or preamble within an
// otherwise parseable file.
type MalformedEntryError struct {
	SourceFile string
	Line       int
	Reason     string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed entry in %s:%d: %s", e.SourceFile, e.Line, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error { return ErrMalformedEntry }

// StateStoreError wraps a failure of the sync state store. Fatal to the
// cycle: state consistency outranks progress.
type StateStoreError struct {
	Op  string
	Err error
}

func (e *StateStoreError) Error() string {
	return fmt.Sprintf("state store %s: %v", e.Op, e.Err)
}

func (e *StateStoreError) Unwrap() error { return ErrStateStore }

// GeneratorError is a typed failure from the insight generator service.
// Transient errors are retried; persistent ones degrade to raw output.
type GeneratorError struct {
	StatusCode int
	Message    string
	Transient  bool
	RetryAfter time.Duration // from a 429 Retry-After header, zero otherwise
}

func (e *GeneratorError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generator HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generator: %s", e.Message)
}

func (e *GeneratorError) Unwrap() error { return ErrGenerator }
