package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

const selectOrder = `SELECT id, order_number, COALESCE(request_id, ''), user_id, status, items,
                            subtotal_amount, discount_amount, tax_amount, shipping_amount, total_amount,
                            discount_id, points_redeemed, points_earned, shipping_address, payment_method,
                            paid_at, notes, created_at, updated_at
                     FROM orders`

type orderRepository struct {
	storage *Storage
}

type accountRepository struct {
	storage *Storage
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o       model.Order
		items   []byte
		address []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.RequestID, &o.UserID, &o.Status, &items,
		&o.SubtotalAmount, &o.DiscountAmount, &o.TaxAmount, &o.ShippingAmount, &o.TotalAmount,
		&o.DiscountID, &o.PointsRedeemed, &o.PointsEarned, &address, &o.Payment.Method,
		&o.Payment.PaidAt, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.OrderNumber, err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode address of order %s: %w", o.OrderNumber, err)
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return scanOrder(r.storage.pool.QueryRow(ctx, selectOrder+` WHERE order_number=$1`, number))
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, selectOrder+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, paidAt *time.Time) error {
	const query = `UPDATE orders SET status=$1, paid_at=COALESCE($2, paid_at), updated_at=NOW()
                   WHERE id=$3 AND status=$4`
	tag, err := r.storage.pool.Exec(ctx, query, to, paidAt, orderID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is no longer %s: %w", orderID, from, domainErrors.ErrInvalidTransition)
	}
	return nil
}

// --- AccountRepository implementation ---

func (r *accountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	const query = `SELECT user_id, email, loyalty_points FROM accounts WHERE user_id=$1`
	var a model.Account
	err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&a.UserID, &a.Email, &a.LoyaltyPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
