package models

// Card links a physical card to exactly one account
type Card struct {
	ID         int64  `json:"id" db:"card_id"`
	AccountID  int64  `json:"account_id" db:"account_id"`
	Company    string `json:"card_company" db:"card_company"`
	HolderName string `json:"cardholder_name" db:"cardholder_name"`
	Type       string `json:"card_type" db:"card_type"`
	Number     string `json:"card_number" db:"card_number"`
	Expiration string `json:"expiration_date" db:"expiration_date"`
	CVC        string `json:"-" db:"cvc"`
	PIN        string `json:"-" db:"pin"`
}

// CardMatch is the result of a successful credential lookup
type CardMatch struct {
	CardID    int64 `db:"card_id"`
	AccountID int64 `db:"account_id"`
	OwnerID   int64 `db:"user_id"`
}

// MaskCardNumber keeps only the last four digits for logging
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return "****" + number[len(number)-4:]
}
