// Package memory keeps the checkout stores and the job queue in process memory.
// Transactions are serialized by a single mutex and work on staged copies, so
// a rolled back transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

type state struct {
	products map[int64]model.Product
	coupons  map[string]model.Coupon
	accounts map[int64]model.Account
	orders   map[int64]model.Order
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		products: make(map[int64]model.Product, len(s.products)),
		coupons:  make(map[string]model.Coupon, len(s.coupons)),
		accounts: make(map[int64]model.Account, len(s.accounts)),
		orders:   make(map[int64]model.Order, len(s.orders)),
		nextID:   s.nextID,
	}
	for id, p := range s.products {
		p.Variants = append([]model.Variant(nil), p.Variants...)
		c.products[id] = p
	}
	for code, cp := range s.coupons {
		c.coupons[code] = cp
	}
	for id, a := range s.accounts {
		c.accounts[id] = a
	}
	for id, o := range s.orders {
		c.orders[id] = o
	}
	return c
}

// Store implements the unit of work and the order/account read repositories.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

var (
	_ repository.UnitOfWork        = (*Store)(nil)
	_ repository.OrderRepository   = (*Store)(nil)
	_ repository.AccountRepository = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		state: &state{
			products: map[int64]model.Product{},
			coupons:  map[string]model.Coupon{},
			accounts: map[int64]model.Account{},
			orders:   map[int64]model.Order{},
		},
		now: time.Now,
	}
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p model.Product) {
	s.lockWrite()
	defer s.unlockWrite()
	p.Variants = append([]model.Variant(nil), p.Variants...)
	for i := range p.Variants {
		p.Variants[i].ProductID = p.ID
	}
	s.state.products[p.ID] = p
}

// PutCoupon inserts or replaces a coupon.
func (s *Store) PutCoupon(c model.Coupon) {
	s.lockWrite()
	defer s.unlockWrite()
	s.state.coupons[c.Code] = c
}

// PutAccount inserts or replaces an account.
func (s *Store) PutAccount(a model.Account) {
	s.lockWrite()
	defer s.unlockWrite()
	s.state.accounts[a.UserID] = a
}

func (s *Store) Product(id int64) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[id]
	p.Variants = append([]model.Variant(nil), p.Variants...)
	return p, ok
}

func (s *Store) Coupon(code string) (model.Coupon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.coupons[code]
	return c, ok
}

func (s *Store) Account(userID int64) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.accounts[userID]
	return a, ok
}

// AllOrders returns every stored order by id.
func (s *Store) AllOrders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// lockWrite waits for any open transaction so its commit cannot overwrite
// the write with a stale staged copy. txMu is always taken before mu.
func (s *Store) lockWrite() {
	s.txMu.Lock()
	s.mu.Lock()
}

func (s *Store) unlockWrite() {
	s.mu.Unlock()
	s.txMu.Unlock()
}

// Begin blocks until no other transaction is open.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()
	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()
	return &tx{store: s, staged: staged}, nil
}

func (s *Store) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.state.orders {
		if o.OrderNumber == number {
			return &o, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *Store) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Order
	for _, o := range s.state.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, orderID int64, from, to model.OrderStatus, paidAt *time.Time) error {
	s.lockWrite()
	defer s.unlockWrite()
	o, ok := s.state.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, domainErrors.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %d is no longer %s: %w", orderID, from, domainErrors.ErrInvalidTransition)
	}
	o.Status = to
	if paidAt != nil {
		o.Payment.PaidAt = paidAt
	}
	o.UpdatedAt = s.now()
	s.state.orders[orderID] = o
	return nil
}

func (s *Store) GetByUserID(_ context.Context, userID int64) (*model.Account, error) {
	a, ok := s.Account(userID)
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &a, nil
}

type tx struct {
	store  *Store
	staged *state
	done   bool
}

func (t *tx) Products() repository.ProductStore { return (*txProducts)(t) }
func (t *tx) Coupons() repository.CouponStore   { return (*txCoupons)(t) }
func (t *tx) Accounts() repository.AccountStore { return (*txAccounts)(t) }
func (t *tx) Orders() repository.OrderStore     { return (*txOrders)(t) }

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	defer t.store.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	t.store.state = t.staged
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

type txProducts tx

func (t *txProducts) GetForUpdate(_ context.Context, productID int64) (*model.Product, error) {
	p, ok := t.staged.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, domainErrors.ErrNotFound)
	}
	p.Variants = append([]model.Variant(nil), p.Variants...)
	return &p, nil
}

func (t *txProducts) SetVariantStock(_ context.Context, variantID int64, stock int) error {
	if stock < 0 {
		return fmt.Errorf("variant %d: %w", variantID, domainErrors.ErrInsufficientStock)
	}
	for id, p := range t.staged.products {
		if v, ok := p.Variant(variantID); ok {
			v.Stock = stock
			t.staged.products[id] = p
			return nil
		}
	}
	return fmt.Errorf("variant %d: %w", variantID, domainErrors.ErrNotFound)
}

type txCoupons tx

func (t *txCoupons) GetByCodeForUpdate(_ context.Context, code string) (*model.Coupon, error) {
	c, ok := t.staged.coupons[code]
	if !ok {
		return nil, fmt.Errorf("coupon %s: %w", code, domainErrors.ErrNotFound)
	}
	return &c, nil
}

func (t *txCoupons) IncrementUsage(_ context.Context, couponID int64) error {
	for code, c := range t.staged.coupons {
		if c.ID != couponID {
			continue
		}
		if c.UsedCount >= c.UsageLimitTotal {
			return fmt.Errorf("coupon %d: %w", couponID, domainErrors.ErrDiscountExhausted)
		}
		c.UsedCount++
		t.staged.coupons[code] = c
		return nil
	}
	return fmt.Errorf("coupon %d: %w", couponID, domainErrors.ErrNotFound)
}

type txAccounts tx

func (t *txAccounts) Ensure(_ context.Context, userID int64) error {
	if _, ok := t.staged.accounts[userID]; !ok {
		t.staged.accounts[userID] = model.Account{UserID: userID}
	}
	return nil
}

func (t *txAccounts) GetForUpdate(_ context.Context, userID int64) (*model.Account, error) {
	a, ok := t.staged.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", userID, domainErrors.ErrNotFound)
	}
	return &a, nil
}

func (t *txAccounts) SetLoyaltyPoints(_ context.Context, userID int64, points int64) error {
	a, ok := t.staged.accounts[userID]
	if !ok {
		return fmt.Errorf("account %d: %w", userID, domainErrors.ErrNotFound)
	}
	if points < 0 {
		return fmt.Errorf("account %d: %w", userID, domainErrors.ErrInsufficientPoints)
	}
	a.LoyaltyPoints = points
	t.staged.accounts[userID] = a
	return nil
}

type txOrders tx

func (t *txOrders) Create(_ context.Context, order *model.Order) error {
	for _, o := range t.staged.orders {
		if o.OrderNumber == order.OrderNumber || (order.RequestID != "" && o.UserID == order.UserID && o.RequestID == order.RequestID) {
			return fmt.Errorf("order %s: %w", order.OrderNumber, domainErrors.ErrAlreadyExists)
		}
	}
	t.staged.nextID++
	now := t.store.now()
	order.ID = t.staged.nextID
	order.CreatedAt = now
	order.UpdatedAt = now
	stored := *order
	stored.Items = append([]model.OrderItem(nil), order.Items...)
	t.staged.orders[order.ID] = stored
	return nil
}

func (t *txOrders) GetByRequestID(_ context.Context, userID int64, requestID string) (*model.Order, error) {
	for _, o := range t.staged.orders {
		if requestID != "" && o.UserID == userID && o.RequestID == requestID {
			return &o, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}
