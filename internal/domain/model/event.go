package model

import "github.com/shopspring/decimal"

// OutcomeStatus is the result of a checkout job.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// OutcomeError is the client-facing description of a failed checkout.
type OutcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OrderOutcome reports a finished checkout to the owning user.
type OrderOutcome struct {
	UserID    int64         `json:"userId"`
	RequestID string        `json:"requestId,omitempty"`
	Status    OutcomeStatus `json:"status"`
	Order     *Order        `json:"order,omitempty"`
	Error     *OutcomeError `json:"error,omitempty"`
}

// InventoryChanged announces a new stock level for a variant.
type InventoryChanged struct {
	ProductID int64 `json:"productId"`
	VariantID int64 `json:"variantId"`
	NewStock  int   `json:"newStock"`
}

// Rating is a single product review score.
type Rating struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Star   int    `json:"star"`
	Review string `json:"review,omitempty"`
}

// ReviewsChanged announces updated rating aggregates for a product.
type ReviewsChanged struct {
	ProductID   int64           `json:"productId"`
	AvgStar     decimal.Decimal `json:"avgStar"`
	TotalRating int             `json:"totalRating"`
	Rating      *Rating         `json:"rating,omitempty"`
	Removed     *int64          `json:"removed,omitempty"`
}
