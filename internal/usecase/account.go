package usecase

import (
	"context"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// AccountUseCase exposes the loyalty balance.
type AccountUseCase struct {
	accounts repository.AccountRepository
}

// NewAccountUseCase constructs AccountUseCase.
func NewAccountUseCase(accounts repository.AccountRepository) *AccountUseCase {
	return &AccountUseCase{accounts: accounts}
}

// Summary returns the account with its current loyalty points.
func (u *AccountUseCase) Summary(ctx context.Context, userID int64) (*model.Account, error) {
	return u.accounts.GetByUserID(ctx, userID)
}
