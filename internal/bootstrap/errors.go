package bootstrap

import (
	"errors"
	"fmt"
)

// Kind classifies initialization failures so callers can react without
// inspecting error strings.
type Kind int

const (
	// KindDatabase marks failures to reach or authenticate with the
	// database. These are retried within an initialization attempt.
	KindDatabase Kind = iota

	// KindConstruction marks failures while assembling the application
	// after the database connected. These are not retried.
	KindConstruction

	// KindConfiguration marks invalid or missing configuration. These are
	// never retried since retrying cannot fix them.
	KindConfiguration
)

// String returns a stable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindConstruction:
		return "construction"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is an initialization failure with a classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDatabaseError wraps err as a database failure.
func NewDatabaseError(err error) *Error {
	return &Error{Kind: KindDatabase, Err: err}
}

// NewConstructionError wraps err as an application construction failure.
func NewConstructionError(err error) *Error {
	return &Error{Kind: KindConstruction, Err: err}
}

// NewConfigurationError wraps err as a configuration failure.
func NewConfigurationError(err error) *Error {
	return &Error{Kind: KindConfiguration, Err: err}
}

// KindOf extracts the failure classification from err.
// Unclassified errors report KindConstruction and ok=false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindConstruction, false
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
