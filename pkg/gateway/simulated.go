package gateway

import (
	"context"
	"fmt"
	"time"
)

// Simulated is a provider that settles everything instantly; replace with a
// real rail integration (Paystack, Flutterwave etc.) in production.
type Simulated struct {
	timeout time.Duration
}

func NewSimulated(timeout time.Duration) *Simulated {
	return &Simulated{timeout: timeout}
}

func (s *Simulated) Settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &SettlementResult{
		ProviderRef: fmt.Sprintf("sim_%s_%d_%d", req.Direction, time.Now().UnixNano(), req.UserID),
		SettledAt:   time.Now(),
	}, nil
}
