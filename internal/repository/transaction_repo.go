package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"purse/internal/apperr"
	"purse/internal/domain"
	"purse/internal/ledger"
	"purse/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts entry in pending status. The unique reference index is the
// last line of defense against generator collisions; violations surface as
// Conflict so the engine can retry with a fresh reference.
func (r *TransactionRepository) Append(ctx context.Context, uow ledger.UnitOfWork, entry *models.Transaction) error {
	tx, err := txOf(uow)
	if err != nil {
		return err
	}
	entry.ID = 0
	entry.Status = domain.StatusPending
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "duplicate transaction reference")
		}
		return apperr.Wrap(apperr.Internal, "append transaction", err)
	}
	return nil
}

// MarkStatus transitions a pending entry to a terminal status. The WHERE on
// status makes the pending -> terminal transition one-shot: a row that is
// already terminal is not found.
func (r *TransactionRepository) MarkStatus(ctx context.Context, uow ledger.UnitOfWork, id uint, status string) error {
	tx, err := txOf(uow)
	if err != nil {
		return err
	}
	if status != domain.StatusSuccess && status != domain.StatusFailed {
		return apperr.Newf(apperr.InvalidArgument, "invalid status transition to %q", status)
	}
	res := tx.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", status)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "update transaction status", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "pending transaction not found")
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "transaction not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find transaction", err)
	}
	return &t, nil
}

func (r *TransactionRepository) FindByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "transaction not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find transaction by reference", err)
	}
	return &t, nil
}

func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uint, page, limit int) ([]models.Transaction, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("wallet_id = ?", walletID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "count transactions", err)
	}
	var entries []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list transactions", err)
	}
	return entries, total, nil
}
