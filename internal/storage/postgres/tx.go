package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// Begin opens a checkout transaction. Row locks taken through the stores are
// held until Commit or Rollback; statement_timeout bounds how long any lock
// wait may last so a stuck transaction rolls back instead of blocking others.
func (s *Storage) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	if s.txTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", s.txTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set statement timeout: %w", err)
		}
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Products() repository.ProductStore { return productStore{tx: t.tx} }
func (t *pgTx) Coupons() repository.CouponStore   { return couponStore{tx: t.tx} }
func (t *pgTx) Accounts() repository.AccountStore { return accountStore{tx: t.tx} }
func (t *pgTx) Orders() repository.OrderStore     { return orderStore{tx: t.tx} }

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// --- ProductStore implementation ---

type productStore struct {
	tx pgx.Tx
}

func (s productStore) GetForUpdate(ctx context.Context, productID int64) (*model.Product, error) {
	const productQuery = `SELECT id, name, base_price FROM products WHERE id=$1 FOR UPDATE`
	var p model.Product
	if err := s.tx.QueryRow(ctx, productQuery, productID).Scan(&p.ID, &p.Name, &p.BasePrice); err != nil {
		return nil, notFound(err, fmt.Sprintf("product %d", productID))
	}

	const variantsQuery = `SELECT id, product_id, sku, stock, price_adjustment, status
                           FROM product_variants WHERE product_id=$1 ORDER BY id FOR UPDATE`
	rows, err := s.tx.Query(ctx, variantsQuery, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Stock, &v.PriceAdjustment, &v.Status); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s productStore) SetVariantStock(ctx context.Context, variantID int64, stock int) error {
	tag, err := s.tx.Exec(ctx, `UPDATE product_variants SET stock=$1 WHERE id=$2`, stock, variantID)
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return fmt.Errorf("variant %d: %w", variantID, domainErrors.ErrInsufficientStock)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("variant %d: %w", variantID, domainErrors.ErrNotFound)
	}
	return nil
}

// --- CouponStore implementation ---

type couponStore struct {
	tx pgx.Tx
}

func (s couponStore) GetByCodeForUpdate(ctx context.Context, code string) (*model.Coupon, error) {
	const query = `SELECT id, code, type, discount_value, usage_limit_total, used_count, valid_from, is_active
                   FROM coupons WHERE code=$1 FOR UPDATE`
	var c model.Coupon
	err := s.tx.QueryRow(ctx, query, code).Scan(
		&c.ID, &c.Code, &c.Type, &c.DiscountValue, &c.UsageLimitTotal, &c.UsedCount, &c.ValidFrom, &c.IsActive,
	)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("coupon %s", code))
	}
	return &c, nil
}

func (s couponStore) IncrementUsage(ctx context.Context, couponID int64) error {
	const query = `UPDATE coupons SET used_count = used_count + 1
                   WHERE id=$1 AND used_count < usage_limit_total`
	tag, err := s.tx.Exec(ctx, query, couponID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %d: %w", couponID, domainErrors.ErrDiscountExhausted)
	}
	return nil
}

// --- AccountStore implementation ---

type accountStore struct {
	tx pgx.Tx
}

// Ensure creates an empty account for users checking out for the first time.
func (s accountStore) Ensure(ctx context.Context, userID int64) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

func (s accountStore) GetForUpdate(ctx context.Context, userID int64) (*model.Account, error) {
	const query = `SELECT user_id, email, loyalty_points FROM accounts WHERE user_id=$1 FOR UPDATE`
	var a model.Account
	if err := s.tx.QueryRow(ctx, query, userID).Scan(&a.UserID, &a.Email, &a.LoyaltyPoints); err != nil {
		return nil, notFound(err, fmt.Sprintf("account %d", userID))
	}
	return &a, nil
}

func (s accountStore) SetLoyaltyPoints(ctx context.Context, userID int64, points int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE accounts SET loyalty_points=$1 WHERE user_id=$2`, points, userID)
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return fmt.Errorf("account %d: %w", userID, domainErrors.ErrInsufficientPoints)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", userID, domainErrors.ErrNotFound)
	}
	return nil
}

// --- OrderStore implementation ---

type orderStore struct {
	tx pgx.Tx
}

func (s orderStore) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}

	const query = `INSERT INTO orders (order_number, request_id, user_id, status, items,
                       subtotal_amount, discount_amount, tax_amount, shipping_amount, total_amount,
                       discount_id, points_redeemed, points_earned, shipping_address, payment_method, paid_at, notes)
                   VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
                   RETURNING id, created_at, updated_at`
	err = s.tx.QueryRow(ctx, query,
		order.OrderNumber, order.RequestID, order.UserID, order.Status, items,
		order.SubtotalAmount, order.DiscountAmount, order.TaxAmount, order.ShippingAmount, order.TotalAmount,
		order.DiscountID, order.PointsRedeemed, order.PointsEarned, address, order.Payment.Method, order.Payment.PaidAt, order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("order %s: %w", order.OrderNumber, domainErrors.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (s orderStore) GetByRequestID(ctx context.Context, userID int64, requestID string) (*model.Order, error) {
	return scanOrder(s.tx.QueryRow(ctx, selectOrder+` WHERE user_id=$1 AND request_id=$2`, userID, requestID))
}
