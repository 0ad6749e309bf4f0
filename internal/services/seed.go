package services

import (
	"context"
	"fmt"

	"github.com/ruralpay/atm/internal/models"
)

const demoExpiration = "12/28"

type demoAccount struct {
	owner   string
	kind    models.AccountType
	balance models.Amount
	card    IssueCardRequest
}

// demo owners are created in this order
var demoOwners = []CreateOwnerRequest{
	{Name: "Alice", Email: "alice@email.com"},
	{Name: "Bob", Email: "bob@email.com"},
}

var demoAccounts = []demoAccount{
	{owner: "Alice", kind: models.AccountTypeChecking, balance: 200000,
		card: IssueCardRequest{Company: "Visa", HolderName: "Alice", Type: "Debit", Number: "3705113944732746", CVC: "487", PIN: "1234"}},
	{owner: "Alice", kind: models.AccountTypeSavings, balance: 500000,
		card: IssueCardRequest{Company: "Mastercard", HolderName: "Alice", Type: "Credit", Number: "3461791776320947", CVC: "415", PIN: "5678"}},
	{owner: "Bob", kind: models.AccountTypeChecking, balance: 150000,
		card: IssueCardRequest{Company: "Visa", HolderName: "Bob", Type: "Debit", Number: "3448730162325261", CVC: "455", PIN: "4321"}},
	{owner: "Bob", kind: models.AccountTypeSavings, balance: 300000,
		card: IssueCardRequest{Company: "Mastercard", HolderName: "Bob", Type: "Credit", Number: "3737877849662508", CVC: "581", PIN: "8765"}},
	{owner: "Bob", kind: models.AccountTypeCredit, balance: -50000,
		card: IssueCardRequest{Company: "American Express", HolderName: "Bob", Type: "Credit", Number: "3473461515850660", CVC: "698", PIN: "9876"}},
}

// SeedResult lists what SeedDemoData created
type SeedResult struct {
	Owners   []*models.Owner
	Accounts []*models.Account
	Cards    []*models.Card
}

// SeedDemoData provisions two owners with five accounts and one card per
// account. Running it twice fails with ErrDuplicate.
func (s *ProvisioningService) SeedDemoData(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}
	ownerIDs := make(map[string]int64, len(demoOwners))

	for _, req := range demoOwners {
		owner, err := s.CreateOwner(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("seed owner %s: %w", req.Name, err)
		}
		ownerIDs[owner.Name] = owner.ID
		result.Owners = append(result.Owners, owner)
	}

	for _, demo := range demoAccounts {
		account, err := s.OpenAccount(ctx, OpenAccountRequest{
			OwnerID:        ownerIDs[demo.owner],
			Type:           demo.kind,
			OpeningBalance: demo.balance,
		})
		if err != nil {
			return nil, fmt.Errorf("seed %s account for %s: %w", demo.kind, demo.owner, err)
		}
		result.Accounts = append(result.Accounts, account)

		cardReq := demo.card
		cardReq.AccountID = account.ID
		cardReq.Expiration = demoExpiration
		card, err := s.IssueCard(ctx, cardReq)
		if err != nil {
			return nil, fmt.Errorf("seed card for account %d: %w", account.ID, err)
		}
		result.Cards = append(result.Cards, card)
	}

	return result, nil
}
