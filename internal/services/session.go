package services

import "sync/atomic"

// Session is the authenticated context produced by Authenticate and passed
// to every ledger call. It is never persisted.
type Session struct {
	AccountID int64
	OwnerID   int64
	CardID    int64

	closed atomic.Bool
}

// NewSession builds an open session for an authenticated card
func NewSession(accountID, ownerID, cardID int64) *Session {
	return &Session{AccountID: accountID, OwnerID: ownerID, CardID: cardID}
}

// Close ends the session. Later ledger calls with it fail with
// ErrNoActiveSession.
func (s *Session) Close() {
	if s != nil {
		s.closed.Store(true)
	}
}

// Active reports whether the session can still be used
func (s *Session) Active() bool {
	return s != nil && !s.closed.Load()
}

func requireSession(s *Session) error {
	if !s.Active() {
		return newError(ErrNoActiveSession, "")
	}
	return nil
}
