package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"purse/internal/models"
	"purse/pkg/reference"
)

// UnitOfWork is an opaque handle for one atomic, all-or-nothing scope. Store
// implementations recover their live transaction from it; the engine only
// threads it through. Every mutating store method takes one — there is no
// "maybe inside a transaction" path.
type UnitOfWork any

// TxManager runs fn inside a unit of work. Returning an error rolls everything
// back; returning nil commits. Row locks taken through the handle are held
// until the unit of work ends.
type TxManager interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// WalletStore owns wallet rows.
type WalletStore interface {
	// Create inserts a zero-balance active wallet. Conflict if the owner
	// already has one.
	Create(ctx context.Context, uow UnitOfWork, ownerID uint) (*models.Wallet, error)

	// Plain lookups, no locking. NotFound when absent.
	FindByOwner(ctx context.Context, ownerID uint) (*models.Wallet, error)
	FindByID(ctx context.Context, id uint) (*models.Wallet, error)

	// LockWallet acquires an exclusive row lock scoped to the unit of work and
	// returns the row as of the lock. This is the only way the engine reads a
	// balance it is about to mutate; the returned row also carries the active
	// flag so it can be re-checked under the lock.
	LockWallet(ctx context.Context, uow UnitOfWork, walletID uint) (*models.Wallet, error)

	// SetBalance writes an absolute new balance. Caller must hold the row lock
	// from LockWallet in the same unit of work. NotFound is an internal fault.
	SetBalance(ctx context.Context, uow UnitOfWork, walletID uint, balance decimal.Decimal) error
}

// TransactionStore owns the append-mostly ledger.
type TransactionStore interface {
	// Append inserts entry in pending status, filling its ID. Conflict if the
	// reference already exists.
	Append(ctx context.Context, uow UnitOfWork, entry *models.Transaction) error

	// MarkStatus transitions pending -> success|failed. NotFound if no row
	// matches inside the active unit of work.
	MarkStatus(ctx context.Context, uow UnitOfWork, id uint, status string) error

	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	FindByReference(ctx context.Context, ref string) (*models.Transaction, error)

	// ListByWallet returns a newest-first page and the total row count.
	ListByWallet(ctx context.Context, walletID uint, page, limit int) ([]models.Transaction, int64, error)
}

// Recipient is what the account directory knows about a transfer target.
type Recipient struct {
	UserID        uint
	AccountNumber string
	DisplayName   string
	IsActive      bool
	IsRestricted  bool
}

// AccountDirectory resolves identities. Owned by identity management; the
// engine only consumes it.
type AccountDirectory interface {
	ResolveWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	ResolveByAccountNumber(ctx context.Context, accountNumber string) (*Recipient, error)
}

// ReferenceGenerator produces the unique correlation string for one movement.
type ReferenceGenerator interface {
	Generate(kind reference.Kind) string
}
