package repository

import (
	"context"

	"gorm.io/gorm"

	"purse/internal/apperr"
	"purse/internal/ledger"
)

// TxManager backs ledger.TxManager with a gorm/MySQL transaction. Row locks
// taken through the returned handle (FOR UPDATE) are held until commit or
// rollback, which is what makes the engine's protocol safe across processes.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Do(ctx context.Context, fn func(uow ledger.UnitOfWork) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{tx: tx})
	})
}

type unitOfWork struct {
	tx *gorm.DB
}

// txOf recovers the live transaction from an engine-supplied handle. A foreign
// handle means wires got crossed between store implementations.
func txOf(uow ledger.UnitOfWork) (*gorm.DB, error) {
	u, ok := uow.(*unitOfWork)
	if !ok || u.tx == nil {
		return nil, apperr.New(apperr.Internal, "unit of work does not belong to this store")
	}
	return u.tx, nil
}
