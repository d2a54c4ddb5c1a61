package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/storefront/internal/config"
)

// Pricing holds the loyalty point exchange rates.
type Pricing struct {
	// PointValue is the money one redeemed point takes off the order.
	PointValue decimal.Decimal
	// EarnRate is the money that has to be spent to earn one point.
	EarnRate decimal.Decimal
}

func NewPricing(cfg *config.Config) Pricing {
	return Pricing{PointValue: cfg.PointValue, EarnRate: cfg.PointsEarnRate}
}

// Redeem converts up to requested points into a discount not larger than remaining.
// Points that would push the discount past remaining are not redeemed.
func (p Pricing) Redeem(requested int64, remaining decimal.Decimal) (int64, decimal.Decimal) {
	if requested <= 0 || !remaining.IsPositive() || !p.PointValue.IsPositive() {
		return 0, decimal.Zero
	}
	affordable := remaining.Div(p.PointValue).Floor().IntPart()
	redeemed := min(requested, affordable)
	return redeemed, p.PointValue.Mul(decimal.NewFromInt(redeemed)).Round(2)
}

// Earned is floor(total / EarnRate).
func (p Pricing) Earned(total decimal.Decimal) int64 {
	if !total.IsPositive() || !p.EarnRate.IsPositive() {
		return 0
	}
	return total.Div(p.EarnRate).Floor().IntPart()
}
