package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"purse/internal/domain"
)

// Metadata is a free-form JSON column. The engine writes counterparty details
// into it for support tooling but never reads it back for decisions.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported column type %T", value)
	}
	return json.Unmarshal(raw, m)
}

// Transaction is one immutable ledger entry: a balance-affecting event with
// before/after snapshots taken under the wallet row lock. Rows are created
// pending and flipped to a terminal status exactly once, by the same unit of
// work that created them.
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Reference       string          `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	WalletID        uint            `gorm:"not null;index" json:"wallet_id"`
	RelatedWalletID *uint           `gorm:"index" json:"related_wallet_id,omitempty"`
	Type            string          `gorm:"size:10;not null" json:"type"`               // credit | debit
	Category        string          `gorm:"size:20;not null" json:"category"`           // funding | transfer | withdrawal
	Status          string          `gorm:"size:10;not null;index;default:'pending'" json:"status"` // pending | success | failed
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceBefore   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Description     string          `gorm:"size:255" json:"description"`
	Metadata        Metadata        `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	Wallet Wallet `gorm:"foreignKey:WalletID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Delta is the signed balance movement this entry represents.
func (t *Transaction) Delta() decimal.Decimal {
	if t.Type == domain.TypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
