package services

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_ScanCardFields(t *testing.T) {
	service := NewAuthService(nil)

	fields, err := service.ScanCardFields("3705113944732746", "487", "12/28", "1234")
	require.NoError(t, err)
	assert.Equal(t, aliceChecking, fields)

	_, err = service.ScanCardFields("3705113944732746", "487", "1228", "1234")
	var fieldErr *InvalidCardFieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "expiration", fieldErr.Field)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("every demo card", func(t *testing.T) {
		for i, card := range []CardFields{aliceChecking, aliceSavings, bobChecking, bobCredit} {
			sess, err := f.auth.Authenticate(ctx, card)
			require.NoError(t, err, "card %d", i)
			assert.True(t, sess.Active())
		}
	})

	t.Run("resolves account owner and card", func(t *testing.T) {
		sess, err := f.auth.Authenticate(ctx, bobChecking)
		require.NoError(t, err)
		assert.Equal(t, f.seed.Accounts[2].ID, sess.AccountID)
		assert.Equal(t, f.seed.Owners[1].ID, sess.OwnerID)
		assert.Equal(t, f.seed.Cards[2].ID, sess.CardID)
	})

	tests := []struct {
		name   string
		mutate func(*CardFields)
	}{
		{name: "wrong number", mutate: func(c *CardFields) { c.Number = "3705113944732747" }},
		{name: "wrong cvc", mutate: func(c *CardFields) { c.CVC = "488" }},
		{name: "wrong expiration", mutate: func(c *CardFields) { c.Expiration = "11/28" }},
		{name: "wrong pin", mutate: func(c *CardFields) { c.PIN = "1235" }},
		{name: "pin of another card", mutate: func(c *CardFields) { c.PIN = aliceSavings.PIN }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := aliceChecking
			tt.mutate(&card)

			sess, err := f.auth.Authenticate(ctx, card)
			assert.Nil(t, sess)
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
			assert.Equal(t, CategoryAuthentication, Category(err))
		})
	}
}

func TestAuthService_AuthenticateStorageUnavailable(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAuthService(db, WithRetryPolicy(testRetryPolicy))

	for i := 0; i < testRetryPolicy.MaxRetries+1; i++ {
		mock.ExpectQuery("SELECT c.card_id").WillReturnError(&pq.Error{Code: "53300"})
	}

	sess, err := service.Authenticate(context.Background(), aliceChecking)
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_AuthenticateInternalError(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAuthService(db, WithRetryPolicy(testRetryPolicy))

	mock.ExpectQuery("SELECT c.card_id").WillReturnError(errors.New("relation \"cards\" does not exist"))

	_, err := service.Authenticate(context.Background(), aliceChecking)
	require.Error(t, err)
	assert.Equal(t, CategoryInternal, Category(err))

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeInternalError, se.Code)
	assert.False(t, se.Retryable())
	assert.NoError(t, mock.ExpectationsWereMet())
}
