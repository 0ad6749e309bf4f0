package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
	"github.com/ruralpay/atm/internal/repository"
	"go.uber.org/zap"
)

// ProvisioningService creates the owners, accounts and cards the ledger
// operates on. The ledger itself never creates or deletes them.
type ProvisioningService struct {
	db        *database.DB
	validator *ValidationHelper
	retry     *retrier
	opts      serviceOptions
}

// CreateOwnerRequest represents a new account holder
type CreateOwnerRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// OpenAccountRequest represents a new account for an existing owner
type OpenAccountRequest struct {
	OwnerID        int64              `json:"owner_id" validate:"required,gt=0"`
	Type           models.AccountType `json:"account_type" validate:"required,oneof=Checking Savings Credit"`
	OpeningBalance models.Amount      `json:"opening_balance"`
}

// IssueCardRequest represents a card for an existing account
type IssueCardRequest struct {
	AccountID  int64  `json:"account_id" validate:"required,gt=0"`
	Company    string `json:"card_company" validate:"required"`
	HolderName string `json:"cardholder_name" validate:"required"`
	Type       string `json:"card_type" validate:"required"`
	Number     string `json:"number" validate:"digits,len=16"`
	CVC        string `json:"cvc" validate:"digits,len=3"`
	Expiration string `json:"expiration" validate:"expiry"`
	PIN        string `json:"pin" validate:"digits,len=4"`
}

func NewProvisioningService(db *database.DB, opts ...Option) *ProvisioningService {
	o := applyOptions(opts)
	o.logger = o.logger.Named("provisioning")
	return &ProvisioningService{
		db:        db,
		validator: NewValidationHelper(),
		retry:     o.retrier(),
		opts:      o,
	}
}

// CreateOwner registers an account holder. Emails are unique.
func (s *ProvisioningService) CreateOwner(ctx context.Context, req CreateOwnerRequest) (*models.Owner, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var owner *models.Owner
	err := s.retry.run(ctx, "create_owner", func(ctx context.Context) error {
		var err error
		owner, err = repository.NewOwnerRepository(s.db).Create(ctx, req.Name, req.Email)
		return mapProvisioningError(err)
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("owner created", zap.Int64("owner_id", owner.ID))
	return owner, nil
}

// OpenAccount opens an account. Only Credit accounts may open below zero.
func (s *ProvisioningService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*models.Account, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !req.Type.AllowsOverdraft() && req.OpeningBalance < 0 {
		return nil, newError(ErrInvalidRequest, fmt.Sprintf("%s accounts cannot open with a negative balance", req.Type))
	}

	var account *models.Account
	err := s.retry.run(ctx, "open_account", func(ctx context.Context) error {
		var err error
		account, err = repository.NewAccountRepository(s.db).Create(ctx, req.OwnerID, req.Type, req.OpeningBalance)
		return mapProvisioningError(err)
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.Int64("owner_id", account.OwnerID),
		zap.String("account_type", string(account.Type)),
	)
	return account, nil
}

// IssueCard links a new card to an account. Card numbers are unique.
func (s *ProvisioningService) IssueCard(ctx context.Context, req IssueCardRequest) (*models.Card, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	card := &models.Card{
		AccountID:  req.AccountID,
		Company:    req.Company,
		HolderName: req.HolderName,
		Type:       req.Type,
		Number:     req.Number,
		Expiration: req.Expiration,
		CVC:        req.CVC,
		PIN:        req.PIN,
	}

	err := s.retry.run(ctx, "issue_card", func(ctx context.Context) error {
		err := repository.NewCardRepository(s.db).Create(ctx, card)
		if errors.Is(err, database.ErrForeignKey) {
			return newError(ErrAccountNotFound, "")
		}
		return mapProvisioningError(err)
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("card issued",
		zap.Int64("card_id", card.ID),
		zap.Int64("account_id", card.AccountID),
		zap.String("card", models.MaskCardNumber(card.Number)),
	)
	return card, nil
}

// RemoveOwner deletes an owner; accounts, cards and ledger entries cascade
func (s *ProvisioningService) RemoveOwner(ctx context.Context, ownerID int64) error {
	return s.retry.run(ctx, "remove_owner", func(ctx context.Context) error {
		err := repository.NewOwnerRepository(s.db).Delete(ctx, ownerID)
		if errors.Is(err, models.ErrNotFound) {
			return newError(ErrOwnerNotFound, "")
		}
		return err
	})
}

func (s *ProvisioningService) validate(req any) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return &ServiceError{
			Err:     ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", FieldErrors(err)),
			Code:    ErrCodeInvalidRequest,
		}
	}
	return nil
}

func mapProvisioningError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrDuplicate):
		return newError(ErrDuplicate, "")
	case errors.Is(err, database.ErrForeignKey):
		return newError(ErrOwnerNotFound, "")
	default:
		return err
	}
}
