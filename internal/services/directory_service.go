package services

import (
	"context"
	"time"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
	"github.com/ruralpay/atm/internal/repository"
)

// DirectoryService lists the accounts an owner can move money between
type DirectoryService struct {
	db    *database.DB
	retry *retrier
	opts  serviceOptions
}

func NewDirectoryService(db *database.DB, opts ...Option) *DirectoryService {
	o := applyOptions(opts)
	o.logger = o.logger.Named("directory")
	return &DirectoryService{db: db, retry: o.retrier(), opts: o}
}

// ListAccountsForOwner returns the owner's accounts ordered by id. An
// owner without accounts gets an empty slice.
func (s *DirectoryService) ListAccountsForOwner(ctx context.Context, ownerID int64) ([]models.AccountSummary, error) {
	start := time.Now()

	var summaries []models.AccountSummary
	err := s.retry.run(ctx, "list_accounts", func(ctx context.Context) error {
		var err error
		summaries, err = repository.NewAccountRepository(s.db).ListByOwner(ctx, ownerID)
		return err
	})
	s.opts.metrics.ObserveOperation("list_accounts", outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// OwnerAccounts lists the accounts of the session owner
func (s *DirectoryService) OwnerAccounts(ctx context.Context, sess *Session) ([]models.AccountSummary, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.ListAccountsForOwner(ctx, sess.OwnerID)
}
