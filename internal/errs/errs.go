// Package errs defines the error taxonomy shared by the store, the remote
// client, and the sync orchestrator.
//
// Every failure the engine surfaces is categorized. The category decides how
// the orchestrator reacts mid-cycle:
//
//   - Network and Sync errors are retryable: the affected queue entry's retry
//     counter advances and the cycle continues with the next entity.
//   - Authentication errors abort the cycle immediately; the whole batch is
//     moot without a valid token.
//   - Storage errors are critical and abort the cycle to avoid writing on
//     top of a possibly-corrupt local schema.
//   - Validation, Runtime, and Unknown errors are not retried automatically.
//
// Errors can be checked with errors.As:
//
//	var serr *errs.Error
//	if errors.As(err, &serr) && serr.Category == errs.Authentication {
//	    // surface to the presentation layer, stop the cycle
//	}
package errs

import (
	"errors"
	"fmt"
)

// Category classifies a failure by its origin.
type Category string

const (
	Network        Category = "NETWORK"
	Authentication Category = "AUTHENTICATION"
	Validation     Category = "VALIDATION"
	Storage        Category = "STORAGE"
	Sync           Category = "SYNC"
	Runtime        Category = "RUNTIME"
	Unknown        Category = "UNKNOWN"
)

// Severity grades how serious a failure is. It is used for prioritizing
// what gets surfaced to the user, never for control flow.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Error is a categorized failure.
type Error struct {
	Category Category
	Severity Severity
	Msg      string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Msg)
}

// Unwrap supports errors.Is/errors.As chains through the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is expected to be transient.
// Only network and sync failures qualify.
func (e *Error) Retryable() bool {
	return e.Category == Network || e.Category == Sync
}

// New wraps err (which may be nil) as a categorized error.
func New(cat Category, sev Severity, msg string, err error) *Error {
	return &Error{Category: cat, Severity: sev, Msg: msg, Err: err}
}

// NetworkErr wraps a transient transport failure.
func NetworkErr(msg string, err error) *Error {
	return New(Network, SeverityMedium, msg, err)
}

// AuthErr wraps a credential failure. These abort a sync cycle.
func AuthErr(msg string, err error) *Error {
	return New(Authentication, SeverityHigh, msg, err)
}

// ValidationErr wraps a constraint violation.
func ValidationErr(msg string, err error) *Error {
	return New(Validation, SeverityMedium, msg, err)
}

// StorageErr wraps a local persistence failure. These are critical.
func StorageErr(msg string, err error) *Error {
	return New(Storage, SeverityCritical, msg, err)
}

// SyncErr wraps a transient reconciliation failure.
func SyncErr(msg string, err error) *Error {
	return New(Sync, SeverityMedium, msg, err)
}

// RuntimeErr wraps a programming or configuration error. Never retried.
func RuntimeErr(msg string, err error) *Error {
	return New(Runtime, SeverityHigh, msg, err)
}

// CategoryOf returns the category of err, or Unknown if err carries none.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Unknown
}

// IsRetryable reports whether err is likely to succeed on retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// IsFatal reports whether err must abort the sync cycle in progress.
func IsFatal(err error) bool {
	switch CategoryOf(err) {
	case Authentication, Storage:
		return true
	default:
		return false
	}
}
