package model

// Account holds customer contact data and the loyalty balance.
type Account struct {
	UserID        int64
	Email         string
	LoyaltyPoints int64
}
