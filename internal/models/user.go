package models

// Owner is the person holding one or more accounts. Owners are created by
// provisioning and are never mutated by the ledger.
type Owner struct {
	ID    int64  `json:"id" db:"user_id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}
