package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/journal"
	"github.com/ruralpay/atm/internal/metrics"
	"github.com/ruralpay/atm/internal/models"
	"github.com/ruralpay/atm/internal/repository"
	"go.uber.org/zap"
)

const (
	opBalance   = "balance"
	opWithdraw  = "withdraw"
	opDeposit   = "deposit"
	opTransfer  = "transfer"
	opChangePin = "change_pin"
	opHistory   = "history"

	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// LedgerService moves money between the session account and the outside
// world or another account of the same owner. Every mutation updates the
// balance and appends ledger entries in one transaction.
type LedgerService struct {
	db    *database.DB
	retry *retrier
	opts  serviceOptions
}

func NewLedgerService(db *database.DB, opts ...Option) *LedgerService {
	o := applyOptions(opts)
	o.logger = o.logger.Named("ledger")
	return &LedgerService{
		db:    db,
		retry: o.retrier(),
		opts:  o,
	}
}

// GetBalance returns the current balance of the session account
func (s *LedgerService) GetBalance(ctx context.Context, sess *Session) (models.Amount, error) {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return 0, s.finish(opBalance, start, err)
	}

	var balance models.Amount
	err := s.retry.run(ctx, opBalance, func(ctx context.Context) error {
		account, err := s.sessionAccount(ctx, repository.NewAccountRepository(s.db), sess, false)
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	return balance, s.finish(opBalance, start, err)
}

// Withdraw debits the session account. Checking and Savings accounts
// cannot go below zero; Credit accounts have no floor.
func (s *LedgerService) Withdraw(ctx context.Context, sess *Session, amount models.Amount) (models.Amount, error) {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return 0, s.finish(opWithdraw, start, err)
	}
	if amount <= 0 {
		return 0, s.finish(opWithdraw, start, newError(ErrInvalidAmount, ""))
	}

	var entry models.LedgerEntry
	err := s.retry.run(ctx, opWithdraw, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			accounts := repository.NewAccountRepository(tx)

			account, err := s.sessionAccount(ctx, accounts, sess, true)
			if err != nil {
				return err
			}

			newBalance, err := debit(account, amount)
			if err != nil {
				return err
			}

			if err := accounts.UpdateBalance(ctx, account.ID, newBalance); err != nil {
				return err
			}

			entry = s.newEntry(uuid.NewString(), account.ID, models.EntryTypeDebit, amount, newBalance)
			return repository.NewLedgerRepository(tx).Append(ctx, &entry)
		})
	})
	if err != nil {
		return 0, s.finish(opWithdraw, start, err, zap.Int64("amount_cents", amount.Cents()))
	}

	s.publish(ctx, journal.EventWithdraw, entry, 0)
	return entry.BalanceAfter, s.finish(opWithdraw, start, nil,
		zap.Int64("account_id", entry.AccountID),
		zap.Int64("amount_cents", amount.Cents()),
	)
}

// Deposit credits the session account
func (s *LedgerService) Deposit(ctx context.Context, sess *Session, amount models.Amount) (models.Amount, error) {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return 0, s.finish(opDeposit, start, err)
	}
	if amount <= 0 {
		return 0, s.finish(opDeposit, start, newError(ErrInvalidAmount, ""))
	}

	var entry models.LedgerEntry
	err := s.retry.run(ctx, opDeposit, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			accounts := repository.NewAccountRepository(tx)

			account, err := s.sessionAccount(ctx, accounts, sess, true)
			if err != nil {
				return err
			}

			newBalance, err := credit(account, amount)
			if err != nil {
				return err
			}

			if err := accounts.UpdateBalance(ctx, account.ID, newBalance); err != nil {
				return err
			}

			entry = s.newEntry(uuid.NewString(), account.ID, models.EntryTypeCredit, amount, newBalance)
			return repository.NewLedgerRepository(tx).Append(ctx, &entry)
		})
	})
	if err != nil {
		return 0, s.finish(opDeposit, start, err, zap.Int64("amount_cents", amount.Cents()))
	}

	s.publish(ctx, journal.EventDeposit, entry, 0)
	return entry.BalanceAfter, s.finish(opDeposit, start, nil,
		zap.Int64("account_id", entry.AccountID),
		zap.Int64("amount_cents", amount.Cents()),
	)
}

// Transfer moves amount from the session account to another account of the
// same owner and returns the new source balance. Both rows are locked in
// ascending id order and the destination is resolved before anything is
// written, so either both legs commit or neither does.
func (s *LedgerService) Transfer(ctx context.Context, sess *Session, amount models.Amount, destinationID int64) (models.Amount, error) {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return 0, s.finish(opTransfer, start, err)
	}
	if amount <= 0 {
		return 0, s.finish(opTransfer, start, newError(ErrInvalidAmount, ""))
	}
	if destinationID == sess.AccountID {
		return 0, s.finish(opTransfer, start, newError(ErrInvalidDestination, "cannot transfer to the same account"))
	}

	var debitEntry, creditEntry models.LedgerEntry
	err := s.retry.run(ctx, opTransfer, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			accounts := repository.NewAccountRepository(tx)

			source, destination, err := lockPair(ctx, accounts, sess.AccountID, destinationID)
			if err != nil {
				return err
			}

			if source == nil || source.OwnerID != sess.OwnerID {
				return newError(ErrAccountNotFound, "")
			}
			if destination == nil {
				return newError(ErrRecipientNotFound, "")
			}
			if destination.OwnerID != source.OwnerID {
				return newError(ErrInvalidDestination, "destination belongs to another owner")
			}

			sourceBalance, err := debit(source, amount)
			if err != nil {
				return err
			}
			destinationBalance, err := credit(destination, amount)
			if err != nil {
				return err
			}

			if err := accounts.UpdateBalance(ctx, source.ID, sourceBalance); err != nil {
				return err
			}
			if err := accounts.UpdateBalance(ctx, destination.ID, destinationBalance); err != nil {
				return err
			}

			txID := uuid.NewString()
			ledger := repository.NewLedgerRepository(tx)
			debitEntry = s.newEntry(txID, source.ID, models.EntryTypeDebit, amount, sourceBalance)
			if err := ledger.Append(ctx, &debitEntry); err != nil {
				return err
			}
			creditEntry = s.newEntry(txID, destination.ID, models.EntryTypeCredit, amount, destinationBalance)
			return ledger.Append(ctx, &creditEntry)
		})
	})
	if err != nil {
		return 0, s.finish(opTransfer, start, err,
			zap.Int64("destination_id", destinationID),
			zap.Int64("amount_cents", amount.Cents()),
		)
	}

	s.publish(ctx, journal.EventTransfer, debitEntry, creditEntry.AccountID)
	return debitEntry.BalanceAfter, s.finish(opTransfer, start, nil,
		zap.Int64("account_id", debitEntry.AccountID),
		zap.Int64("destination_id", creditEntry.AccountID),
		zap.Int64("amount_cents", amount.Cents()),
	)
}

// ChangePin replaces the PIN of the session card. The current PIN is
// checked first; the new pair must match and be four digits. Re-prompting
// is left to the caller.
func (s *LedgerService) ChangePin(ctx context.Context, sess *Session, currentPin, newPin, confirmPin string) error {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return s.finish(opChangePin, start, err)
	}

	err := s.retry.run(ctx, opChangePin, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			cards := repository.NewCardRepository(tx)

			stored, err := cards.FindPinForUpdate(ctx, sess.CardID)
			if errors.Is(err, models.ErrNotFound) {
				return newError(ErrNoActiveSession, "card no longer exists")
			}
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare([]byte(stored), []byte(currentPin)) != 1 {
				return newError(ErrWrongPin, "")
			}
			if newPin != confirmPin {
				return newError(ErrInvalidPin, "new pin and confirmation differ")
			}
			if !isValidPin(newPin) {
				return newError(ErrInvalidPin, "pin must be exactly 4 digits")
			}

			return cards.UpdatePin(ctx, sess.CardID, newPin)
		})
	})
	if err != nil {
		return s.finish(opChangePin, start, err)
	}

	event := journal.NewEvent(journal.EventPinChange, uuid.NewString(), sess.AccountID)
	s.publishEvent(ctx, event)
	return s.finish(opChangePin, start, nil, zap.Int64("account_id", sess.AccountID))
}

// History returns the newest ledger entries of the session account, newest
// first. A non-positive limit selects the default.
func (s *LedgerService) History(ctx context.Context, sess *Session, limit int) ([]models.LedgerEntry, error) {
	start := time.Now()
	if err := requireSession(sess); err != nil {
		return nil, s.finish(opHistory, start, err)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var entries []models.LedgerEntry
	err := s.retry.run(ctx, opHistory, func(ctx context.Context) error {
		if _, err := s.sessionAccount(ctx, repository.NewAccountRepository(s.db), sess, false); err != nil {
			return err
		}
		var err error
		entries, err = repository.NewLedgerRepository(s.db).ListByAccount(ctx, sess.AccountID, limit)
		return err
	})
	if err != nil {
		return nil, s.finish(opHistory, start, err)
	}
	return entries, s.finish(opHistory, start, nil)
}

// sessionAccount loads the session account, optionally locking it. An
// account that vanished or changed owner reads as not found.
func (s *LedgerService) sessionAccount(ctx context.Context, accounts repository.AccountRepository, sess *Session, lock bool) (*models.Account, error) {
	find := accounts.FindByID
	if lock {
		find = accounts.FindByIDForUpdate
	}

	account, err := find(ctx, sess.AccountID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, newError(ErrAccountNotFound, "")
	}
	if err != nil {
		return nil, err
	}
	if account.OwnerID != sess.OwnerID {
		return nil, newError(ErrAccountNotFound, "")
	}
	return account, nil
}

// lockPair locks two accounts lower id first. A missing account comes back
// nil.
func lockPair(ctx context.Context, accounts repository.AccountRepository, sourceID, destinationID int64) (*models.Account, *models.Account, error) {
	firstID, secondID := sourceID, destinationID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := lockOptional(ctx, accounts, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := lockOptional(ctx, accounts, secondID)
	if err != nil {
		return nil, nil, err
	}

	if firstID != sourceID {
		first, second = second, first
	}
	return first, second, nil
}

func lockOptional(ctx context.Context, accounts repository.AccountRepository, id int64) (*models.Account, error) {
	account, err := accounts.FindByIDForUpdate(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// debit applies the withdraw rule to an account
func debit(account *models.Account, amount models.Amount) (models.Amount, error) {
	if !account.Type.AllowsOverdraft() && amount > account.Balance {
		return 0, newError(ErrInsufficientFunds, "")
	}
	if account.Balance < math.MinInt64+amount {
		return 0, newError(ErrInvalidAmount, "balance would overflow")
	}
	return account.Balance - amount, nil
}

func credit(account *models.Account, amount models.Amount) (models.Amount, error) {
	if account.Balance > math.MaxInt64-amount {
		return 0, newError(ErrInvalidAmount, "balance would overflow")
	}
	return account.Balance + amount, nil
}

func (s *LedgerService) newEntry(txID string, accountID int64, entryType models.EntryType, amount, balanceAfter models.Amount) models.LedgerEntry {
	return models.LedgerEntry{
		TransactionID: txID,
		AccountID:     accountID,
		EntryType:     entryType,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		CreatedAt:     s.opts.now().UTC(),
	}
}

// publish sends a committed entry to the journal. Failures are logged and
// counted but never undo the commit.
func (s *LedgerService) publish(ctx context.Context, eventType journal.EventType, entry models.LedgerEntry, counterpartyID int64) {
	event := journal.NewEvent(eventType, entry.TransactionID, entry.AccountID)
	event.CounterpartyID = counterpartyID
	event.Amount = entry.Amount
	event.BalanceAfter = entry.BalanceAfter
	s.publishEvent(ctx, event)
}

func (s *LedgerService) publishEvent(ctx context.Context, event journal.Event) {
	if err := s.opts.journal.Publish(ctx, event); err != nil {
		s.opts.metrics.IncJournalFailure("journal")
		s.opts.logger.Warn("failed to publish ledger event",
			zap.String("event_id", event.ID),
			zap.String("transaction_id", event.TransactionID),
			zap.Error(err),
		)
	}
}

// finish records metrics and logs the outcome, then returns err unchanged
func (s *LedgerService) finish(op string, start time.Time, err error, fields ...zap.Field) error {
	s.opts.metrics.ObserveOperation(op, outcome(err), time.Since(start))

	fields = append(fields, zap.String("operation", op))
	switch outcome(err) {
	case metrics.OutcomeSuccess:
		s.opts.logger.Info("ledger operation committed", fields...)
	case metrics.OutcomeRejected:
		s.opts.logger.Debug("ledger operation rejected", append(fields, zap.Error(err))...)
	default:
		s.opts.logger.Error("ledger operation failed", append(fields, zap.Error(err))...)
	}
	return err
}
