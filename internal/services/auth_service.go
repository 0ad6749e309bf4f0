package services

import (
	"context"
	"errors"
	"time"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/metrics"
	"github.com/ruralpay/atm/internal/models"
	"github.com/ruralpay/atm/internal/repository"
	"go.uber.org/zap"
)

// AuthService checks card data and matches it against stored cards
type AuthService struct {
	db        *database.DB
	validator *ValidationHelper
	retry     *retrier
	opts      serviceOptions
}

func NewAuthService(db *database.DB, opts ...Option) *AuthService {
	o := applyOptions(opts)
	o.logger = o.logger.Named("auth")
	return &AuthService{
		db:        db,
		validator: NewValidationHelper(),
		retry:     o.retrier(),
		opts:      o,
	}
}

// ScanCardFields checks the format of card data read by the terminal. It
// never touches storage.
func (s *AuthService) ScanCardFields(number, cvc, expiration, pin string) (CardFields, error) {
	fields := CardFields{Number: number, CVC: cvc, Expiration: expiration, PIN: pin}
	if err := s.validator.ValidateCardFields(fields); err != nil {
		s.opts.logger.Debug("card fields rejected", zap.Error(err))
		return CardFields{}, err
	}
	return fields, nil
}

// Authenticate returns a new Session when a stored card matches all four
// fields exactly
func (s *AuthService) Authenticate(ctx context.Context, fields CardFields) (*Session, error) {
	start := time.Now()

	var match *models.CardMatch
	err := s.retry.run(ctx, "authenticate", func(ctx context.Context) error {
		m, err := repository.NewCardRepository(s.db).FindByCredentials(
			ctx, fields.Number, fields.CVC, fields.Expiration, fields.PIN,
		)
		if errors.Is(err, models.ErrNotFound) {
			return newError(ErrAuthenticationFailed, "")
		}
		if err != nil {
			return err
		}
		match = m
		return nil
	})

	masked := models.MaskCardNumber(fields.Number)
	if err != nil {
		s.opts.metrics.ObserveOperation("authenticate", outcome(err), time.Since(start))
		s.opts.logger.Info("card authentication failed", zap.String("card", masked), zap.Error(err))
		return nil, err
	}

	s.opts.metrics.ObserveOperation("authenticate", metrics.OutcomeSuccess, time.Since(start))
	s.opts.logger.Info("card authenticated",
		zap.String("card", masked),
		zap.Int64("account_id", match.AccountID),
	)
	return NewSession(match.AccountID, match.OwnerID, match.CardID), nil
}

// outcome maps an operation error onto a metrics label
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case Category(err) == CategoryTransient || Category(err) == CategoryInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
