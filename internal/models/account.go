package models

import "errors"

// ErrNotFound indicates the requested row does not exist
var ErrNotFound = errors.New("not found")

// AccountType is the kind of account; it decides the overdraft rule.
type AccountType string

const (
	AccountTypeChecking AccountType = "Checking"
	AccountTypeSavings  AccountType = "Savings"
	AccountTypeCredit   AccountType = "Credit"
)

// Valid reports whether t is one of the known account types
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}

// AllowsOverdraft reports whether the balance may go below zero.
// Only Credit accounts may, and no floor is enforced for them.
func (t AccountType) AllowsOverdraft() bool {
	return t == AccountTypeCredit
}

// Account is a balance held by an owner
type Account struct {
	ID      int64       `json:"id" db:"account_id"`
	OwnerID int64       `json:"owner_id" db:"user_id"`
	Type    AccountType `json:"account_type" db:"account_type"`
	Balance Amount      `json:"balance" db:"balance"`
}

// AccountSummary is what the account directory lists for transfer selection
type AccountSummary struct {
	ID   int64       `json:"id" db:"account_id"`
	Type AccountType `json:"account_type" db:"account_type"`
}
