package core

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for comparison using errors.Is(). Every *Error matches the
// sentinel of its Kind; the ExternalService and Timeout kinds additionally
// match ErrRunner.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrStorage         = errors.New("storage failure")
	ErrRunner          = errors.New("runner failure")
	ErrExternalService = errors.New("external service failure")
	ErrTimeout         = errors.New("operation timeout")
	ErrConfiguration   = errors.New("invalid configuration")
)

// Kind classifies an *Error.
type Kind uint8

const (
	KindOther Kind = iota
	KindInvalidInput
	KindStorage
	KindRunner
	KindExternalService
	KindTimeout
	KindConfiguration
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindStorage:
		return "storage"
	case KindRunner:
		return "runner"
	case KindExternalService:
		return "external_service"
	case KindTimeout:
		return "timeout"
	case KindConfiguration:
		return "configuration"
	default:
		return "other"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindStorage:
		return ErrStorage
	case KindRunner:
		return ErrRunner
	case KindExternalService:
		return ErrExternalService
	case KindTimeout:
		return ErrTimeout
	case KindConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

// Error provides structured error information with context.
// It implements the error interface and supports error wrapping.
type Error struct {
	Op   string // Operation that failed (e.g., "memory.Add")
	Kind Kind   // Error classification
	Err  error  // Underlying error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind and, for the narrower runner
// kinds, ErrRunner.
func (e *Error) Is(target error) bool {
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	if target == ErrRunner && (e.Kind == KindExternalService || e.Kind == KindTimeout) {
		return true
	}
	return false
}

// E builds an *Error. When err already carries a kind it is returned as is,
// so re-wrapping at each layer never masks the original classification.
func E(op string, kind Kind, err error) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind != KindOther {
		return err
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// InvalidInputError reports caller misuse such as an empty query or message.
func InvalidInputError(op, msg string) error {
	return &Error{Op: op, Kind: KindInvalidInput, Err: errors.New(msg)}
}

// StorageError wraps a provider-internal failure.
func StorageError(op string, err error) error { return E(op, KindStorage, err) }

// RunnerError wraps an execution-layer failure. Context deadline errors are
// classified as timeouts.
func RunnerError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return E(op, KindTimeout, err)
	}
	return E(op, KindRunner, err)
}

// ExternalServiceError wraps a failure reported by a remote service.
func ExternalServiceError(op string, err error) error { return E(op, KindExternalService, err) }

// TimeoutError reports that an operation ran past its deadline.
func TimeoutError(op string, err error) error { return E(op, KindTimeout, err) }

// ConfigurationError reports a missing or invalid setting at construction time.
func ConfigurationError(op, msg string) error {
	return &Error{Op: op, Kind: KindConfiguration, Err: errors.New(msg)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindOther
}

// IsInvalidInput checks if an error is caller misuse.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsStorage checks if an error originated in a memory provider.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

// IsRunner checks if an error originated in a runner, including the
// external service and timeout subtypes.
func IsRunner(err error) bool { return errors.Is(err, ErrRunner) }

// IsConfiguration checks if an error is configuration-related.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
