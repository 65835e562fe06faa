package ledger_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"purse/internal/apperr"
	"purse/internal/domain"
	"purse/internal/ledger"
	"purse/internal/models"
	"purse/pkg/reference"
)

// fakeStore is an in-memory implementation of the engine's collaborators with
// the same semantics the MySQL stores provide: a real mutex per wallet row,
// writes staged per unit of work and made visible only on commit, and unique
// reference enforcement. Concurrency tests against it exercise genuine
// blocking, not simulated interleavings.
type fakeStore struct {
	mu           sync.Mutex
	wallets      map[uint]*models.Wallet
	entries      map[uint]*models.Transaction
	rowLocks     map[uint]*sync.Mutex
	users        map[string]*ledger.Recipient
	userWallet   map[uint]uint
	nextWalletID uint
	nextEntryID  uint

	lockCalls int32

	// failure injection
	failAppend     bool
	failSetBalance bool
	// wallet ids the directory should keep reporting active even though the
	// committed row is inactive (simulates deactivation racing the lookup)
	staleActive map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets:     make(map[uint]*models.Wallet),
		entries:     make(map[uint]*models.Transaction),
		rowLocks:    make(map[uint]*sync.Mutex),
		users:       make(map[string]*ledger.Recipient),
		userWallet:  make(map[uint]uint),
		staleActive: make(map[uint]bool),
	}
}

func (s *fakeStore) addUser(userID uint, name, accountNumber string, active, restricted bool) {
	s.users[accountNumber] = &ledger.Recipient{
		UserID:        userID,
		AccountNumber: accountNumber,
		DisplayName:   name,
		IsActive:      active,
		IsRestricted:  restricted,
	}
}

func (s *fakeStore) addWallet(userID uint, balance decimal.Decimal, active bool) *models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWalletID++
	w := &models.Wallet{
		ID:       s.nextWalletID,
		UserID:   userID,
		Balance:  balance,
		Currency: "NGN",
		IsActive: active,
	}
	s.wallets[w.ID] = w
	s.rowLocks[w.ID] = &sync.Mutex{}
	s.userWallet[userID] = w.ID
	return w
}

func (s *fakeStore) balance(walletID uint) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[walletID].Balance
}

func (s *fakeStore) deactivateWallet(walletID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[walletID].IsActive = false
}

// walletEntries returns committed entries for a wallet, oldest first.
func (s *fakeStore) walletEntries(walletID uint) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, e := range s.entries {
		if e.WalletID == walletID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// seedEntry plants a committed entry owning ref, so a later Append with the
// same reference conflicts.
func (s *fakeStore) seedEntry(walletID uint, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntryID++
	s.entries[s.nextEntryID] = &models.Transaction{
		ID:        s.nextEntryID,
		WalletID:  walletID,
		Reference: ref,
		Status:    domain.StatusSuccess,
	}
}

// --- unit of work ---

type fakeUOW struct {
	st       *fakeStore
	locked   []uint
	balances map[uint]decimal.Decimal
	staged   []*models.Transaction
	statuses map[uint]string
}

func (s *fakeStore) Do(ctx context.Context, fn func(uow ledger.UnitOfWork) error) error {
	uow := &fakeUOW{
		st:       s,
		balances: make(map[uint]decimal.Decimal),
		statuses: make(map[uint]string),
	}
	err := fn(uow)
	s.mu.Lock()
	if err == nil {
		for id, b := range uow.balances {
			s.wallets[id].Balance = b
		}
		for _, e := range uow.staged {
			committed := *e
			if st, ok := uow.statuses[e.ID]; ok {
				committed.Status = st
			}
			s.entries[e.ID] = &committed
		}
	}
	s.mu.Unlock()
	for _, id := range uow.locked {
		s.rowLocks[id].Unlock()
	}
	return err
}

func (u *fakeUOW) holds(walletID uint) bool {
	for _, id := range u.locked {
		if id == walletID {
			return true
		}
	}
	return false
}

// --- WalletStore ---

func (s *fakeStore) Create(ctx context.Context, uow ledger.UnitOfWork, ownerID uint) (*models.Wallet, error) {
	if _, ok := s.userWallet[ownerID]; ok {
		return nil, apperr.New(apperr.Conflict, "user already has a wallet")
	}
	w := s.addWallet(ownerID, decimal.Zero, true)
	return w, nil
}

func (s *fakeStore) FindByOwner(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.userWallet[ownerID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "wallet not found")
	}
	w := *s.wallets[id]
	return &w, nil
}

func (s *fakeStore) FindByID(ctx context.Context, id uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "wallet not found")
	}
	copied := *w
	return &copied, nil
}

func (s *fakeStore) LockWallet(ctx context.Context, uow ledger.UnitOfWork, walletID uint) (*models.Wallet, error) {
	u := uow.(*fakeUOW)
	atomic.AddInt32(&s.lockCalls, 1)
	s.mu.Lock()
	lock, ok := s.rowLocks[walletID]
	s.mu.Unlock()
	if !ok {
		return nil, apperr.New(apperr.NotFound, "wallet not found")
	}
	lock.Lock() // blocks like FOR UPDATE until the holder's unit of work ends
	u.locked = append(u.locked, walletID)
	s.mu.Lock()
	defer s.mu.Unlock()
	w := *s.wallets[walletID]
	return &w, nil
}

func (s *fakeStore) SetBalance(ctx context.Context, uow ledger.UnitOfWork, walletID uint, balance decimal.Decimal) error {
	u := uow.(*fakeUOW)
	if s.failSetBalance {
		return apperr.New(apperr.Internal, "injected balance write failure")
	}
	if !u.holds(walletID) {
		return apperr.New(apperr.Internal, "balance write without row lock")
	}
	u.balances[walletID] = balance
	return nil
}

// --- TransactionStore ---

// fakeEntryStore wraps the shared state behind the TransactionStore interface
// so the wallet and transaction stores can both expose a FindByID.
type fakeEntryStore struct{ st *fakeStore }

func (s *fakeStore) entryStore() *fakeEntryStore { return &fakeEntryStore{st: s} }

func (f *fakeEntryStore) Append(ctx context.Context, uow ledger.UnitOfWork, entry *models.Transaction) error {
	s := f.st
	u := uow.(*fakeUOW)
	if s.failAppend {
		return apperr.New(apperr.Internal, "injected append failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Reference == entry.Reference {
			return apperr.New(apperr.Conflict, "duplicate transaction reference")
		}
	}
	for _, e := range u.staged {
		if e.Reference == entry.Reference {
			return apperr.New(apperr.Conflict, "duplicate transaction reference")
		}
	}
	s.nextEntryID++
	entry.ID = s.nextEntryID
	entry.Status = domain.StatusPending
	staged := *entry
	u.staged = append(u.staged, &staged)
	return nil
}

func (f *fakeEntryStore) MarkStatus(ctx context.Context, uow ledger.UnitOfWork, id uint, status string) error {
	u := uow.(*fakeUOW)
	for _, e := range u.staged {
		if e.ID == id {
			u.statuses[id] = status
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "pending transaction not found")
}

func (f *fakeEntryStore) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	s := f.st
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "transaction not found")
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEntryStore) FindByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	s := f.st
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Reference == ref {
			copied := *e
			return &copied, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "transaction not found")
}

func (f *fakeEntryStore) ListByWallet(ctx context.Context, walletID uint, page, limit int) ([]models.Transaction, int64, error) {
	all := f.st.walletEntries(walletID)
	// newest first
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- AccountDirectory ---

func (s *fakeStore) ResolveWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.userWallet[userID]
	if !ok {
		return nil, nil
	}
	w := *s.wallets[id]
	if s.staleActive[id] {
		w.IsActive = true
	}
	return &w, nil
}

func (s *fakeStore) ResolveByAccountNumber(ctx context.Context, accountNumber string) (*ledger.Recipient, error) {
	r, ok := s.users[accountNumber]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

// seqRefs hands out a fixed sequence of references, for collision tests.
type seqRefs struct {
	mu   sync.Mutex
	refs []string
}

func (s *seqRefs) Generate(_ reference.Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.refs) == 0 {
		return "TXN-WALLET-EXHAUSTED"
	}
	ref := s.refs[0]
	s.refs = s.refs[1:]
	return ref
}
