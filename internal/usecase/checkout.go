package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// Checkout is the committed result of one create-order job.
type Checkout struct {
	Order *model.Order
	// Inventory holds the new stock of every variant the order touched.
	Inventory []model.InventoryChanged
	// Replayed is set when the request had already been turned into an order.
	Replayed bool
}

// CheckoutUseCase assembles orders from queued checkout requests.
type CheckoutUseCase struct {
	uow     repository.UnitOfWork
	pricing Pricing
	now     func() time.Time
	number  func(time.Time) string
}

func NewCheckoutUseCase(uow repository.UnitOfWork, pricing Pricing) *CheckoutUseCase {
	return &CheckoutUseCase{uow: uow, pricing: pricing, now: time.Now, number: newOrderNumber}
}

// newOrderNumber renders ORD-YYYYMMDD-XXXXXXXX.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), suffix)
}

// Assemble validates the request and commits stock, coupon, points and the
// order as one transaction. Any error leaves every store untouched.
func (u *CheckoutUseCase) Assemble(ctx context.Context, job model.CreateOrderJob) (*Checkout, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	var result *Checkout
	err := repository.WithinTransaction(ctx, u.uow, func(tx repository.Tx) error {
		if job.RequestID != "" {
			existing, err := tx.Orders().GetByRequestID(ctx, job.UserID, job.RequestID)
			switch {
			case err == nil:
				result = &Checkout{Order: existing, Replayed: true}
				return nil
			case !errors.Is(err, domainErrors.ErrNotFound):
				return fmt.Errorf("lookup request %s: %w", job.RequestID, err)
			}
		}

		checkout, err := u.assemble(ctx, tx, job)
		if err != nil {
			return err
		}
		result = checkout
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *CheckoutUseCase) assemble(ctx context.Context, tx repository.Tx, job model.CreateOrderJob) (*Checkout, error) {
	now := u.now()
	order := &model.Order{
		RequestID:       job.RequestID,
		UserID:          job.UserID,
		Status:          model.InitialOrderStatus(job.PaymentMethod),
		ShippingAddress: job.ShippingAddress,
		Payment:         model.PaymentDetails{Method: job.PaymentMethod},
		Notes:           job.Notes,
		TaxAmount:       decimal.Zero,
		ShippingAmount:  decimal.Zero,
	}

	products, err := lockProducts(ctx, tx, job.Items)
	if err != nil {
		return nil, err
	}

	var (
		subtotal = decimal.Zero
		touched  []*model.Variant
	)
	for _, item := range job.Items {
		product := products[item.ProductID]
		variant, ok := product.Variant(item.VariantID)
		if !ok || variant.Status == model.VariantStatusArchived {
			return nil, fmt.Errorf("variant %d of product %d: %w", item.VariantID, item.ProductID, domainErrors.ErrNotFound)
		}
		if variant.Stock < item.Quantity {
			return nil, fmt.Errorf("variant %d has %d left, %d requested: %w",
				variant.ID, variant.Stock, item.Quantity, domainErrors.ErrInsufficientStock)
		}

		unit := product.UnitPrice(variant)
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(line)
		variant.Stock -= item.Quantity
		if !slices.Contains(touched, variant) {
			touched = append(touched, variant)
		}

		order.Items = append(order.Items, model.OrderItem{
			ProductID:   product.ID,
			VariantID:   variant.ID,
			ProductName: product.Name,
			SKU:         variant.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			LineTotal:   line,
		})
	}
	order.SubtotalAmount = subtotal

	inventory := make([]model.InventoryChanged, 0, len(touched))
	for _, v := range touched {
		if err := tx.Products().SetVariantStock(ctx, v.ID, v.Stock); err != nil {
			return nil, err
		}
		inventory = append(inventory, model.InventoryChanged{ProductID: v.ProductID, VariantID: v.ID, NewStock: v.Stock})
	}

	discount := decimal.Zero
	if job.DiscountCode != "" {
		coupon, err := tx.Coupons().GetByCodeForUpdate(ctx, job.DiscountCode)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, fmt.Errorf("coupon %s does not exist: %w", job.DiscountCode, domainErrors.ErrInvalidDiscount)
			}
			return nil, err
		}
		if err := coupon.Redeemable(now); err != nil {
			return nil, err
		}
		discount = coupon.Discount(subtotal)
		if err := tx.Coupons().IncrementUsage(ctx, coupon.ID); err != nil {
			return nil, err
		}
		order.DiscountID = &coupon.ID
	}

	if err := tx.Accounts().Ensure(ctx, job.UserID); err != nil {
		return nil, err
	}
	account, err := tx.Accounts().GetForUpdate(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	if job.PointsToUse > 0 {
		if account.LoyaltyPoints < job.PointsToUse {
			return nil, fmt.Errorf("account %d has %d points, %d requested: %w",
				account.UserID, account.LoyaltyPoints, job.PointsToUse, domainErrors.ErrInsufficientPoints)
		}
		redeemed, amount := u.pricing.Redeem(job.PointsToUse, subtotal.Sub(discount))
		order.PointsRedeemed = redeemed
		discount = discount.Add(amount)
	}
	order.DiscountAmount = decimal.Min(discount, subtotal)
	order.TotalAmount = order.ComputeTotal()
	order.PointsEarned = u.pricing.Earned(order.TotalAmount)

	balance := account.LoyaltyPoints - order.PointsRedeemed + order.PointsEarned
	if balance != account.LoyaltyPoints {
		if err := tx.Accounts().SetLoyaltyPoints(ctx, account.UserID, balance); err != nil {
			return nil, err
		}
	}

	order.OrderNumber = u.number(now)
	if err := tx.Orders().Create(ctx, order); err != nil {
		return nil, err
	}

	return &Checkout{Order: order, Inventory: inventory}, nil
}

// lockProducts locks every referenced product in ascending id order so two
// checkouts sharing products always wait on each other in the same order.
func lockProducts(ctx context.Context, tx repository.Tx, items []model.LineItem) (map[int64]*model.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products := make(map[int64]*model.Product, len(ids))
	for _, id := range ids {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}
