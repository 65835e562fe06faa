// Package gateway models the external settlement rail that real money enters
// and leaves through. It is a collaborator with its own timeout contract and
// is always invoked outside the ledger's unit of work, so a slow or failing
// provider can never hold a wallet row lock.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionCollect = "collect" // pull money in before a wallet credit
	DirectionPayout  = "payout"  // push money out after a wallet debit
)

type SettlementRequest struct {
	Reference string // ledger reference when known, empty for collections
	UserID    uint
	Amount    decimal.Decimal
	Currency  string
	Direction string
}

type SettlementResult struct {
	ProviderRef string
	SettledAt   time.Time
}

type Provider interface {
	Settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
}
