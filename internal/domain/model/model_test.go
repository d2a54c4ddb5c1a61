package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
				t.Fatalf("expected %v, got %v", tc.allowed, got)
			}
		})
	}

	if !OrderStatusDelivered.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Fatal("expected delivered and cancelled to be terminal")
	}
	if OrderStatusShipped.Terminal() {
		t.Fatal("shipped must not be terminal")
	}
}

func TestInitialOrderStatus(t *testing.T) {
	if got := InitialOrderStatus(PaymentMethodCOD); got != OrderStatusConfirmed {
		t.Fatalf("expected cod orders to start confirmed, got %s", got)
	}
	for _, m := range []PaymentMethod{PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodEWallet} {
		if got := InitialOrderStatus(m); got != OrderStatusPending {
			t.Fatalf("expected %s orders to start pending, got %s", m, got)
		}
	}
}

func TestCouponRedeemable(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	base := Coupon{Code: "X", IsActive: true, UsageLimitTotal: 2, UsedCount: 1, ValidFrom: now.Add(-time.Hour)}

	if err := base.Redeemable(now); err != nil {
		t.Fatalf("expected coupon to be redeemable, got %v", err)
	}

	inactive := base
	inactive.IsActive = false
	if err := inactive.Redeemable(now); !errors.Is(err, domainErrors.ErrInvalidDiscount) {
		t.Fatalf("expected invalid discount, got %v", err)
	}

	future := base
	future.ValidFrom = now.Add(time.Hour)
	if err := future.Redeemable(now); !errors.Is(err, domainErrors.ErrInvalidDiscount) {
		t.Fatalf("expected invalid discount for future coupon, got %v", err)
	}

	used := base
	used.UsedCount = 2
	if err := used.Redeemable(now); !errors.Is(err, domainErrors.ErrDiscountExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}

func TestCouponDiscountClamped(t *testing.T) {
	subtotal := decimal.RequireFromString("80.00")

	pct := Coupon{Type: CouponTypePercentage, DiscountValue: decimal.NewFromInt(25)}
	if got := pct.Discount(subtotal); !got.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected 20, got %s", got)
	}

	fixed := Coupon{Type: CouponTypeFixedAmount, DiscountValue: decimal.NewFromInt(100)}
	if got := fixed.Discount(subtotal); !got.Equal(subtotal) {
		t.Fatalf("expected discount clamped to subtotal, got %s", got)
	}
}

func TestCreateOrderJobValidate(t *testing.T) {
	valid := CreateOrderJob{
		UserID:        1,
		Items:         []LineItem{{ProductID: 1, VariantID: 2, Quantity: 1}},
		PaymentMethod: PaymentMethodCard,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutations := map[string]func(*CreateOrderJob){
		"no user":        func(j *CreateOrderJob) { j.UserID = 0 },
		"no items":       func(j *CreateOrderJob) { j.Items = nil },
		"zero quantity":  func(j *CreateOrderJob) { j.Items = []LineItem{{ProductID: 1, VariantID: 2}} },
		"bad method":     func(j *CreateOrderJob) { j.PaymentMethod = "cash" },
		"negative point": func(j *CreateOrderJob) { j.PointsToUse = -1 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			job := valid
			mutate(&job)
			if err := job.Validate(); !errors.Is(err, domainErrors.ErrInvalidRequest) {
				t.Fatalf("expected invalid request, got %v", err)
			}
		})
	}
}

func TestProductVariantLookup(t *testing.T) {
	p := Product{ID: 1, BasePrice: decimal.NewFromInt(10), Variants: []Variant{{ID: 5, Stock: 3, PriceAdjustment: decimal.RequireFromString("2.5")}}}
	v, ok := p.Variant(5)
	if !ok {
		t.Fatal("expected variant to be found")
	}
	v.Stock--
	if p.Variants[0].Stock != 2 {
		t.Fatalf("expected in-place mutation, got %d", p.Variants[0].Stock)
	}
	if got := p.UnitPrice(v); !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected unit price %s", got)
	}
	if _, ok := p.Variant(99); ok {
		t.Fatal("expected missing variant")
	}
}
