package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruralpay/atm/internal/models"
)

// Error kinds returned by the terminal and ledger. Compare with errors.Is.
var (
	ErrInvalidCardField     = errors.New("invalid card field")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNoActiveSession      = errors.New("no active session")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidDestination   = errors.New("invalid destination account")
	ErrRecipientNotFound    = errors.New("recipient account not found")
	ErrWrongPin             = errors.New("current pin does not match")
	ErrInvalidPin           = errors.New("new pin is invalid")
	ErrStorageUnavailable   = errors.New("storage unavailable")

	ErrOwnerNotFound  = errors.New("owner not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrDuplicate      = errors.New("record already exists")

	// ErrInvalidAmountFormat is returned by models.ParseAmount
	ErrInvalidAmountFormat = models.ErrInvalidAmountFormat
)

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later. Only
// storage failures qualify; the failed attempt left no partial effect.
func (e *ServiceError) Retryable() bool {
	return e.Code == ErrCodeStorageUnavailable
}

// Common error codes
const (
	ErrCodeInvalidCardField     = "invalid_card_field"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNoActiveSession      = "no_active_session"
	ErrCodeAccountNotFound      = "account_not_found"
	ErrCodeInvalidAmount        = "invalid_amount"
	ErrCodeInsufficientFunds    = "insufficient_funds"
	ErrCodeInvalidDestination   = "invalid_destination"
	ErrCodeRecipientNotFound    = "recipient_not_found"
	ErrCodeWrongPin             = "wrong_pin"
	ErrCodeInvalidPin           = "invalid_pin"
	ErrCodeStorageUnavailable   = "storage_unavailable"
	ErrCodeOwnerNotFound        = "owner_not_found"
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeDuplicate            = "duplicate"
	ErrCodeInternalError        = "internal_error"
)

var codeBySentinel = map[error]string{
	ErrInvalidCardField:     ErrCodeInvalidCardField,
	ErrAuthenticationFailed: ErrCodeAuthenticationFailed,
	ErrNoActiveSession:      ErrCodeNoActiveSession,
	ErrAccountNotFound:      ErrCodeAccountNotFound,
	ErrInvalidAmount:        ErrCodeInvalidAmount,
	ErrInsufficientFunds:    ErrCodeInsufficientFunds,
	ErrInvalidDestination:   ErrCodeInvalidDestination,
	ErrRecipientNotFound:    ErrCodeRecipientNotFound,
	ErrWrongPin:             ErrCodeWrongPin,
	ErrInvalidPin:           ErrCodeInvalidPin,
	ErrOwnerNotFound:        ErrCodeOwnerNotFound,
	ErrInvalidRequest:       ErrCodeInvalidRequest,
	ErrDuplicate:            ErrCodeDuplicate,
}

// newError wraps a sentinel in a ServiceError carrying its code
func newError(sentinel error, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Message: message, Code: codeBySentinel[sentinel]}
}

func storageUnavailable(op string, cause error) *ServiceError {
	return &ServiceError{
		Err:     fmt.Errorf("%w: %w", ErrStorageUnavailable, cause),
		Message: op + " failed after retries",
		Code:    ErrCodeStorageUnavailable,
	}
}

func internalError(op string, cause error) *ServiceError {
	return &ServiceError{Err: cause, Message: op + " failed", Code: ErrCodeInternalError}
}

// InvalidCardFieldError names the first card field that failed its format
// check.
type InvalidCardFieldError struct {
	Field string
}

func (e *InvalidCardFieldError) Error() string {
	return fmt.Sprintf("invalid card field: %s", e.Field)
}

// Is lets errors.Is(err, ErrInvalidCardField) match
func (e *InvalidCardFieldError) Is(target error) bool {
	return target == ErrInvalidCardField
}

// Error categories, coarse enough for a terminal to pick a message
const (
	CategoryValidation        = "validation"
	CategoryAuthentication    = "authentication"
	CategoryState             = "state"
	CategoryInsufficientFunds = "insufficient_funds"
	CategoryTransient         = "transient"
	CategoryInternal          = "internal"
)

// Category classifies an error returned by this package
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCardField),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidAmountFormat),
		errors.Is(err, ErrInvalidDestination),
		errors.Is(err, ErrInvalidPin),
		errors.Is(err, ErrInvalidRequest):
		return CategoryValidation
	case errors.Is(err, ErrAuthenticationFailed), errors.Is(err, ErrWrongPin):
		return CategoryAuthentication
	case errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrOwnerNotFound),
		errors.Is(err, ErrDuplicate):
		return CategoryState
	case errors.Is(err, ErrInsufficientFunds):
		return CategoryInsufficientFunds
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	default:
		return CategoryInternal
	}
}

// isDomainError reports errors that retrying cannot change
func isDomainError(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, ErrInvalidCardField)
}
