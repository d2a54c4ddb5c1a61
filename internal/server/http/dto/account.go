package dto

// AccountResponse represents the loyalty balance.
type AccountResponse struct {
	UserID        int64  `json:"userId"`
	Email         string `json:"email,omitempty"`
	LoyaltyPoints int64  `json:"loyaltyPoints"`
}
