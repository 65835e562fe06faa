package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"purse/internal/apperr"
	"purse/internal/ledger"
	"purse/internal/models"
)

// UserRepository owns identity rows and doubles as the engine's account
// directory: it resolves a user to their wallet and an account number to a
// recipient summary.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, uow ledger.UnitOfWork, u *models.User) error {
	tx, err := txOf(uow)
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "email, phone number or account number already registered")
		}
		return apperr.Wrap(apperr.Internal, "create user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find user", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find user by email", err)
	}
	return &u, nil
}

// ResolveWallet implements ledger.AccountDirectory. Missing wallets resolve to
// nil rather than an error; the engine decides what that means per operation.
func (r *UserRepository) ResolveWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "resolve wallet", err)
	}
	return &w, nil
}

// ResolveByAccountNumber implements ledger.AccountDirectory.
func (r *UserRepository) ResolveByAccountNumber(ctx context.Context, accountNumber string) (*ledger.Recipient, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "resolve account number", err)
	}
	return &ledger.Recipient{
		UserID:        u.ID,
		AccountNumber: u.AccountNumber,
		DisplayName:   u.FullName(),
		IsActive:      u.IsActive,
		IsRestricted:  u.IsBlacklisted,
	}, nil
}
