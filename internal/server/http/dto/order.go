package dto

import "github.com/polkiloo/storefront/internal/domain/model"

// LineItemRequest is one cart line.
type LineItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	VariantID int64 `json:"variantId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest is the checkout payload of POST /api/orders.
type CreateOrderRequest struct {
	Items           []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress model.Address     `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod" binding:"required"`
	DiscountCode    string            `json:"discountCode"`
	PointsToUse     int64             `json:"pointsToUse" binding:"gte=0"`
	Notes           string            `json:"notes"`
}

// ToJob converts the request into a queue payload for userID.
func (r CreateOrderRequest) ToJob(userID int64, requestID string) model.CreateOrderJob {
	items := make([]model.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.LineItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return model.CreateOrderJob{
		RequestID:       requestID,
		UserID:          userID,
		Items:           items,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   model.PaymentMethod(r.PaymentMethod),
		DiscountCode:    r.DiscountCode,
		PointsToUse:     r.PointsToUse,
		Notes:           r.Notes,
	}
}

// AcceptedResponse acknowledges a queued checkout.
type AcceptedResponse struct {
	JobID     string `json:"jobId"`
	RequestID string `json:"requestId"`
}

// StatusRequest moves an order to a new status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}
