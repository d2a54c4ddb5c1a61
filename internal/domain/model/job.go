package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

// JobKind names the handler a queued job is routed to.
type JobKind string

const (
	JobKindCreateOrder JobKind = "create_order"
	JobKindSendEmail   JobKind = "send_email"
	JobKindUploadAsset JobKind = "upload_asset"
	JobKindDeleteAsset JobKind = "delete_asset"
)

// JobState is the introspection state exposed to queue monitoring.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Valid reports whether s is a known state.
func (s JobState) Valid() bool {
	switch s {
	case JobStateWaiting, JobStateActive, JobStateCompleted, JobStateFailed:
		return true
	}
	return false
}

// Job is a durable queue entry.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Payload     json.RawMessage
	State       JobState
	Attempts    int
	MaxAttempts int
	DedupKey    string
	LastError   string
	RunAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinishedAt  *time.Time
}

// LineItem is a requested cart line.
type LineItem struct {
	ProductID int64 `json:"productId"`
	VariantID int64 `json:"variantId"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderJob is the checkout payload carried by the queue.
type CreateOrderJob struct {
	RequestID       string        `json:"requestId"`
	UserID          int64         `json:"userId"`
	Items           []LineItem    `json:"items"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	DiscountCode    string        `json:"discountCode,omitempty"`
	PointsToUse     int64         `json:"pointsToUse,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// Validate rejects payloads that can never be assembled.
func (j *CreateOrderJob) Validate() error {
	if j.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", domainErrors.ErrInvalidRequest)
	}
	if len(j.Items) == 0 {
		return fmt.Errorf("%w: order has no items", domainErrors.ErrInvalidRequest)
	}
	for _, item := range j.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for variant %d", domainErrors.ErrInvalidRequest, item.VariantID)
		}
	}
	if !j.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unsupported payment method %q", domainErrors.ErrInvalidRequest, j.PaymentMethod)
	}
	if j.PointsToUse < 0 {
		return fmt.Errorf("%w: points to use must not be negative", domainErrors.ErrInvalidRequest)
	}
	return nil
}

// SendEmailJob asks the notifier to confirm an order.
type SendEmailJob struct {
	UserID      int64  `json:"userId"`
	OrderNumber string `json:"orderNumber"`
}
