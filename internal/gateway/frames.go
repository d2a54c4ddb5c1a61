package gateway

import "github.com/polkiloo/storefront/internal/domain/model"

// Server to client frame types.
const (
	FrameOrderOutcome    = "orderOutcome"
	FrameInventoryUpdate = "inventoryUpdate"
	FrameReviewUpdate    = "reviewUpdate"
	FrameSubscribed      = "subscribed"
	FrameUnsubscribed    = "unsubscribed"
	FrameError           = "error"
)

// Frame is one server to client websocket message.
type Frame struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type orderOutcomeData struct {
	Status    model.OutcomeStatus `json:"status"`
	RequestID string              `json:"requestId,omitempty"`
	Order     *model.Order        `json:"order,omitempty"`
	Error     *model.OutcomeError `json:"error,omitempty"`
}

type inventoryData struct {
	ProductID int64 `json:"productId"`
	VariantID int64 `json:"variantId"`
	Stock     int   `json:"stock"`
}

type subscriptionData struct {
	Topic      string  `json:"topic"`
	ProductIDs []int64 `json:"productIds"`
}

func orderOutcomeFrame(o model.OrderOutcome) Frame {
	return Frame{Type: FrameOrderOutcome, Data: orderOutcomeData{Status: o.Status, RequestID: o.RequestID, Order: o.Order, Error: o.Error}}
}

func inventoryFrame(e model.InventoryChanged) Frame {
	return Frame{Type: FrameInventoryUpdate, Data: inventoryData{ProductID: e.ProductID, VariantID: e.VariantID, Stock: e.NewStock}}
}

func reviewFrame(e model.ReviewsChanged) Frame {
	return Frame{Type: FrameReviewUpdate, Data: e}
}

func errorFrame(message string) Frame {
	return Frame{Type: FrameError, Error: message}
}

// clientMessage is a client to server request. ProductID is accepted for
// single-product subscriptions.
type clientMessage struct {
	Type       string  `json:"type"`
	Topic      string  `json:"topic"`
	ProductID  int64   `json:"productId,omitempty"`
	ProductIDs []int64 `json:"productIds,omitempty"`
}

func (m clientMessage) ids() []int64 {
	ids := make([]int64, 0, len(m.ProductIDs)+1)
	ids = append(ids, m.ProductIDs...)
	if m.ProductID != 0 {
		ids = append(ids, m.ProductID)
	}
	return ids
}
