package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"purse/internal/apperr"
	"purse/internal/domain"
	"purse/internal/ledger"
	"purse/internal/models"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, uow ledger.UnitOfWork, ownerID uint) (*models.Wallet, error) {
	tx, err := txOf(uow)
	if err != nil {
		return nil, err
	}
	w := &models.Wallet{
		UserID:   ownerID,
		Balance:  decimal.Zero,
		Currency: domain.Currency,
		IsActive: true,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.Conflict, "user already has a wallet")
		}
		return nil, apperr.Wrap(apperr.Internal, "create wallet", err)
	}
	return w, nil
}

func (r *WalletRepository) FindByOwner(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "wallet not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find wallet by owner", err)
	}
	return &w, nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).First(&w, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "wallet not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find wallet", err)
	}
	return &w, nil
}

// LockWallet reads the wallet row FOR UPDATE. Concurrent lockers of the same
// row block here until the holding unit of work commits or rolls back.
func (r *WalletRepository) LockWallet(ctx context.Context, uow ledger.UnitOfWork, walletID uint) (*models.Wallet, error) {
	tx, err := txOf(uow)
	if err != nil {
		return nil, err
	}
	var w models.Wallet
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&w, walletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "wallet not found")
		}
		// includes lock-wait timeouts; the unit of work aborts and the caller
		// sees a retryable internal failure
		return nil, apperr.Wrap(apperr.Internal, "lock wallet", err)
	}
	return &w, nil
}

// SetBalance writes an absolute balance. Only called while holding the row
// lock from LockWallet in the same unit of work.
func (r *WalletRepository) SetBalance(ctx context.Context, uow ledger.UnitOfWork, walletID uint, balance decimal.Decimal) error {
	tx, err := txOf(uow)
	if err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "update balance", res.Error)
	}
	if res.RowsAffected == 0 {
		// cannot happen while the row lock is held; treat as fatal
		return apperr.New(apperr.NotFound, "wallet vanished during unit of work")
	}
	return nil
}
