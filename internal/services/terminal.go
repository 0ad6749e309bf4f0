package services

import (
	"context"
	"sync"

	"github.com/ruralpay/atm/internal/models"
)

// Terminal is the surface an interactive front end drives. It holds at most
// one session: Authenticate replaces it and CloseSession drops it.
type Terminal struct {
	auth      *AuthService
	ledger    *LedgerService
	directory *DirectoryService

	mu      sync.Mutex
	session *Session
}

func NewTerminal(auth *AuthService, ledger *LedgerService, directory *DirectoryService) *Terminal {
	return &Terminal{auth: auth, ledger: ledger, directory: directory}
}

// ScanCardFields checks card data without touching storage
func (t *Terminal) ScanCardFields(number, cvc, expiration, pin string) (CardFields, error) {
	return t.auth.ScanCardFields(number, cvc, expiration, pin)
}

// Authenticate clears any current session, then opens a new one when the
// card matches. On failure the terminal is left without a session.
func (t *Terminal) Authenticate(ctx context.Context, fields CardFields) (*Session, error) {
	t.CloseSession()

	sess, err := t.auth.Authenticate(ctx, fields)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.session = sess
	t.mu.Unlock()
	return sess, nil
}

// Session returns the current session, or nil
func (t *Terminal) Session() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// CloseSession ends the current session, if any
func (t *Terminal) CloseSession() {
	t.mu.Lock()
	sess := t.session
	t.session = nil
	t.mu.Unlock()

	sess.Close()
}

func (t *Terminal) GetBalance(ctx context.Context) (models.Amount, error) {
	return t.ledger.GetBalance(ctx, t.Session())
}

func (t *Terminal) Withdraw(ctx context.Context, amount models.Amount) (models.Amount, error) {
	return t.ledger.Withdraw(ctx, t.Session(), amount)
}

func (t *Terminal) Deposit(ctx context.Context, amount models.Amount) (models.Amount, error) {
	return t.ledger.Deposit(ctx, t.Session(), amount)
}

// ListOwnerAccounts lists every account of the session owner, the session
// account included
func (t *Terminal) ListOwnerAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	return t.directory.OwnerAccounts(ctx, t.Session())
}

func (t *Terminal) Transfer(ctx context.Context, amount models.Amount, destinationID int64) (models.Amount, error) {
	return t.ledger.Transfer(ctx, t.Session(), amount, destinationID)
}

func (t *Terminal) ChangePin(ctx context.Context, currentPin, newPin, confirmPin string) error {
	return t.ledger.ChangePin(ctx, t.Session(), currentPin, newPin, confirmPin)
}

// History returns a mini statement for the session account
func (t *Terminal) History(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	return t.ledger.History(ctx, t.Session(), limit)
}
