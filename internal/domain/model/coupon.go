package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

// CouponType selects how DiscountValue is applied.
type CouponType string

const (
	CouponTypePercentage  CouponType = "percentage"
	CouponTypeFixedAmount CouponType = "fixed_amount"
)

// Coupon is a finite-use discount code.
type Coupon struct {
	ID              int64
	Code            string
	Type            CouponType
	DiscountValue   decimal.Decimal
	UsageLimitTotal int
	UsedCount       int
	ValidFrom       time.Time
	IsActive        bool
}

// Redeemable checks activation window and remaining uses.
func (c *Coupon) Redeemable(now time.Time) error {
	if !c.IsActive {
		return fmt.Errorf("%w: coupon %s is inactive", domainErrors.ErrInvalidDiscount, c.Code)
	}
	if c.ValidFrom.After(now) {
		return fmt.Errorf("%w: coupon %s is not valid yet", domainErrors.ErrInvalidDiscount, c.Code)
	}
	if c.UsedCount >= c.UsageLimitTotal {
		return fmt.Errorf("%w: coupon %s", domainErrors.ErrDiscountExhausted, c.Code)
	}
	return nil
}

// Discount computes the amount taken off subtotal, never exceeding it.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case CouponTypePercentage:
		amount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case CouponTypeFixedAmount:
		amount = c.DiscountValue
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
