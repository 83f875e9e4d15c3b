package streamledger

import (
	"errors"
	"fmt"

	"github.com/xraph/streamledger/types"
)

// Sentinel errors returned by ledger operations and store backends.
var (
	// Stream errors
	ErrInvalidAmount     = errors.New("streamledger: invalid amount")
	ErrStreamNotFound    = errors.New("streamledger: stream not found")
	ErrUnauthorized      = errors.New("streamledger: unauthorized")
	ErrStreamInactive    = errors.New("streamledger: stream is inactive")
	ErrSettlementPending = errors.New("streamledger: payout settlement pending")
	ErrAmountOverflow    = types.ErrAmountOverflow

	// Governance errors
	ErrAlreadyInitialized   = errors.New("streamledger: already initialized")
	ErrNotAdmin             = errors.New("streamledger: caller is not the admin")
	ErrEmergencyStopEnabled = errors.New("streamledger: emergency stop enabled")

	// General errors
	ErrInvalidInput   = errors.New("streamledger: invalid input")
	ErrTransferFailed = errors.New("streamledger: transfer failed")

	// Store errors
	ErrStoreClosed     = errors.New("streamledger: store is closed")
	ErrStoreNotReady   = errors.New("streamledger: store not ready")
	ErrMigrationFailed = errors.New("streamledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("streamledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "streamledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("streamledger: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns e if it holds any errors, nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStreamNotFound)
}

// IsAuthError returns true if the caller was refused.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotAdmin)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrSettlementPending) ||
		errors.Is(err, ErrStoreNotReady)
}
