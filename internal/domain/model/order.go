package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Terminal reports whether no transition leaves the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod identifies how the customer settles the order.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodEWallet:
		return true
	}
	return false
}

// RequiresSettlement is false for pay-on-delivery.
func (m PaymentMethod) RequiresSettlement() bool {
	return m != PaymentMethodCOD
}

// InitialOrderStatus picks the status a freshly assembled order starts in.
func InitialOrderStatus(m PaymentMethod) OrderStatus {
	if m.RequiresSettlement() {
		return OrderStatusPending
	}
	return OrderStatusConfirmed
}

// Address is a snapshot copied into the order, not a live reference.
type Address struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// PaymentDetails tracks settlement.
type PaymentDetails struct {
	Method PaymentMethod `json:"method"`
	PaidAt *time.Time    `json:"paidAt,omitempty"`
}

// OrderItem is an immutable priced line.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	VariantID   int64           `json:"variantId"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Order is created once by checkout; only Status and Payment.PaidAt change afterwards.
type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	RequestID       string          `json:"requestId,omitempty"`
	UserID          int64           `json:"userId"`
	Status          OrderStatus     `json:"status"`
	Items           []OrderItem     `json:"items"`
	SubtotalAmount  decimal.Decimal `json:"subtotalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DiscountID      *int64          `json:"discountId,omitempty"`
	PointsRedeemed  int64           `json:"pointsRedeemed"`
	PointsEarned    int64           `json:"pointsEarned"`
	ShippingAddress Address         `json:"shippingAddress"`
	Payment         PaymentDetails  `json:"paymentDetails"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ComputeTotal applies subtotal - discount + tax + shipping.
func (o *Order) ComputeTotal() decimal.Decimal {
	return o.SubtotalAmount.Sub(o.DiscountAmount).Add(o.TaxAmount).Add(o.ShippingAmount)
}
