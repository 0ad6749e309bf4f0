package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ruralpay/atm/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: &InvalidCardFieldError{Field: "cvc"}, want: CategoryValidation},
		{err: newError(ErrInvalidAmount, ""), want: CategoryValidation},
		{err: fmt.Errorf("parse: %w", models.ErrInvalidAmountFormat), want: CategoryValidation},
		{err: newError(ErrInvalidDestination, ""), want: CategoryValidation},
		{err: newError(ErrInvalidPin, ""), want: CategoryValidation},
		{err: newError(ErrAuthenticationFailed, ""), want: CategoryAuthentication},
		{err: newError(ErrWrongPin, ""), want: CategoryAuthentication},
		{err: newError(ErrNoActiveSession, ""), want: CategoryState},
		{err: newError(ErrAccountNotFound, ""), want: CategoryState},
		{err: newError(ErrRecipientNotFound, ""), want: CategoryState},
		{err: newError(ErrInsufficientFunds, ""), want: CategoryInsufficientFunds},
		{err: storageUnavailable("withdraw", errors.New("deadlock")), want: CategoryTransient},
		{err: internalError("withdraw", errors.New("syntax")), want: CategoryInternal},
		{err: context.DeadlineExceeded, want: CategoryTransient},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.err))
		})
	}
}

func TestServiceError(t *testing.T) {
	err := newError(ErrInsufficientFunds, "")
	assert.Equal(t, "insufficient funds", err.Error())
	assert.Equal(t, ErrCodeInsufficientFunds, err.Code)
	assert.False(t, err.Retryable())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = newError(ErrInvalidPin, "pin must be exactly 4 digits")
	assert.Equal(t, "pin must be exactly 4 digits: new pin is invalid", err.Error())

	cause := errors.New("connection refused")
	unavailable := storageUnavailable("deposit", cause)
	assert.True(t, unavailable.Retryable())
	assert.ErrorIs(t, unavailable, ErrStorageUnavailable)
	assert.ErrorIs(t, unavailable, cause)
	assert.Contains(t, unavailable.Error(), "deposit failed after retries")
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, isDomainError(newError(ErrWrongPin, "")))
	assert.True(t, isDomainError(fmt.Errorf("wrapped: %w", newError(ErrWrongPin, ""))))
	assert.True(t, isDomainError(&InvalidCardFieldError{Field: "pin"}))
	assert.False(t, isDomainError(errors.New("driver: bad connection")))
}
