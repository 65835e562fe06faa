// Package reference generates the externally stable correlation strings
// attached to every money movement. A reference embeds a millisecond timestamp
// and monotonic ULID entropy, so concurrent calls from any number of processes
// cannot collide in practice.
package reference

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindFunding    Kind = "FUNDING"
	KindDebit      Kind = "DEBIT"
	KindCredit     Kind = "CREDIT"
	KindWithdrawal Kind = "WITHDRAWAL"
)

const prefix = "TXN-WALLET-"

type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate returns a reference like TXN-WALLET-FUNDING1756712345678-01J8...
// The ULID tail is monotonic within a process; uniqueness across processes
// comes from its 80 bits of entropy.
func (g *Generator) Generate(kind Kind) string {
	now := time.Now()
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), g.entropy)
	g.mu.Unlock()
	return fmt.Sprintf("%s%s%d-%s", prefix, kind, now.UnixMilli(), id.String())
}
