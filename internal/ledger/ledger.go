// Package ledger is the funds-movement engine. Every balance mutation in the
// system goes through one of its three movement operations, which share a
// single protocol: resolve and pre-validate without locks, open a unit of
// work, lock the wallet row(s) in a fixed order, re-validate against the
// locked state, append pending ledger entries, write the new balance(s), flip
// the entries to success, commit. Any failure before commit rolls the whole
// unit of work back; callers observe full success or no change at all.
package ledger

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"purse/internal/apperr"
	"purse/internal/domain"
	"purse/internal/models"
	"purse/pkg/reference"
)

// appendAttempts bounds retries on a reference collision. The generator makes
// collisions unreachable in practice; hitting the bound is an internal fault.
const appendAttempts = 3

type Service struct {
	tx        TxManager
	wallets   WalletStore
	entries   TransactionStore
	directory AccountDirectory
	refs      ReferenceGenerator
	log       *zap.Logger
}

func NewService(tx TxManager, wallets WalletStore, entries TransactionStore, directory AccountDirectory, refs ReferenceGenerator, log *zap.Logger) *Service {
	return &Service{tx: tx, wallets: wallets, entries: entries, directory: directory, refs: refs, log: log}
}

type MovementResult struct {
	Transaction *models.Transaction
	NewBalance  decimal.Decimal
}

type RecipientSummary struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
}

type TransferResult struct {
	MovementResult
	Recipient RecipientSummary
}

type BalanceResult struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type HistoryResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   Pagination           `json:"pagination"`
}

// Fund credits amount onto the caller's wallet.
func (s *Service) Fund(ctx context.Context, userID uint, amount decimal.Decimal) (*MovementResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	wallet, err := s.activeWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result *MovementResult
	err = s.tx.Do(ctx, func(uow UnitOfWork) error {
		locked, err := s.wallets.LockWallet(ctx, uow, wallet.ID)
		if err != nil {
			return err
		}
		if !locked.IsActive {
			return apperr.New(apperr.Inactive, "wallet is inactive")
		}
		after := locked.Balance.Add(amount)
		entry := &models.Transaction{
			WalletID:      wallet.ID,
			Type:          domain.TypeCredit,
			Category:      domain.CategoryFunding,
			Amount:        amount,
			BalanceBefore: locked.Balance,
			BalanceAfter:  after,
			Description:   "Wallet funding",
		}
		if err := s.append(ctx, uow, entry, reference.KindFunding); err != nil {
			return err
		}
		if err := s.apply(ctx, uow, entry); err != nil {
			return err
		}
		result = &MovementResult{Transaction: entry, NewBalance: after}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "fund", zap.Uint("user_id", userID), zap.String("amount", amount.String()))
	}

	s.log.Info("wallet funded",
		zap.Uint("user_id", userID),
		zap.Uint("wallet_id", wallet.ID),
		zap.String("amount", amount.String()),
		zap.String("reference", result.Transaction.Reference),
	)
	return result, nil
}

// Withdraw debits amount from the caller's wallet. The whole request is
// rejected with InsufficientFunds if the locked balance cannot cover it.
func (s *Service) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*MovementResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	wallet, err := s.activeWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = "Wallet withdrawal"
	}

	var result *MovementResult
	err = s.tx.Do(ctx, func(uow UnitOfWork) error {
		locked, err := s.wallets.LockWallet(ctx, uow, wallet.ID)
		if err != nil {
			return err
		}
		if !locked.IsActive {
			return apperr.New(apperr.Inactive, "wallet is inactive")
		}
		if locked.Balance.LessThan(amount) {
			return apperr.New(apperr.InsufficientFunds, "insufficient balance")
		}
		after := locked.Balance.Sub(amount)
		entry := &models.Transaction{
			WalletID:      wallet.ID,
			Type:          domain.TypeDebit,
			Category:      domain.CategoryWithdrawal,
			Amount:        amount,
			BalanceBefore: locked.Balance,
			BalanceAfter:  after,
			Description:   description,
		}
		if err := s.append(ctx, uow, entry, reference.KindWithdrawal); err != nil {
			return err
		}
		if err := s.apply(ctx, uow, entry); err != nil {
			return err
		}
		result = &MovementResult{Transaction: entry, NewBalance: after}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "withdraw", zap.Uint("user_id", userID), zap.String("amount", amount.String()))
	}

	s.log.Info("withdrawal completed",
		zap.Uint("user_id", userID),
		zap.Uint("wallet_id", wallet.ID),
		zap.String("amount", amount.String()),
		zap.String("reference", result.Transaction.Reference),
	)
	return result, nil
}

// Transfer moves amount from the caller to the holder of accountNumber as two
// linked ledger entries committed in one unit of work. The two wallet rows are
// locked in ascending id order, a caller-independent total order, so swapped
// concurrent transfers on the same pair serialize instead of deadlocking.
func (s *Service) Transfer(ctx context.Context, userID uint, accountNumber string, amount decimal.Decimal, description string) (*TransferResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	senderWallet, err := s.activeWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.directory.ResolveByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, s.fail(err, "transfer", zap.Uint("user_id", userID))
	}
	if recipient == nil {
		return nil, apperr.New(apperr.NotFound, "recipient account not found")
	}
	if recipient.UserID == userID {
		return nil, apperr.New(apperr.InvalidArgument, "cannot transfer to your own account")
	}
	if !recipient.IsActive || recipient.IsRestricted {
		return nil, apperr.New(apperr.Inactive, "recipient account is not available")
	}
	recipientWallet, err := s.directory.ResolveWallet(ctx, recipient.UserID)
	if err != nil {
		return nil, s.fail(err, "transfer", zap.Uint("user_id", userID))
	}
	if recipientWallet == nil || !recipientWallet.IsActive {
		return nil, apperr.New(apperr.Inactive, "recipient wallet is not available")
	}
	if description == "" {
		description = "Transfer to " + recipient.DisplayName
	}

	var result *TransferResult
	err = s.tx.Do(ctx, func(uow UnitOfWork) error {
		sender, receiver, err := s.lockPair(ctx, uow, senderWallet.ID, recipientWallet.ID)
		if err != nil {
			return err
		}
		if !sender.IsActive {
			return apperr.New(apperr.Inactive, "wallet is inactive")
		}
		if !receiver.IsActive {
			return apperr.New(apperr.Inactive, "recipient wallet is not available")
		}
		if sender.Balance.LessThan(amount) {
			return apperr.New(apperr.InsufficientFunds, "insufficient balance")
		}

		senderAfter := sender.Balance.Sub(amount)
		receiverAfter := receiver.Balance.Add(amount)

		debit := &models.Transaction{
			WalletID:        sender.ID,
			RelatedWalletID: &receiver.ID,
			Type:            domain.TypeDebit,
			Category:        domain.CategoryTransfer,
			Amount:          amount,
			BalanceBefore:   sender.Balance,
			BalanceAfter:    senderAfter,
			Description:     description,
			Metadata: models.Metadata{
				"recipient_name":    recipient.DisplayName,
				"recipient_account": recipient.AccountNumber,
			},
		}
		credit := &models.Transaction{
			WalletID:        receiver.ID,
			RelatedWalletID: &sender.ID,
			Type:            domain.TypeCredit,
			Category:        domain.CategoryTransfer,
			Amount:          amount,
			BalanceBefore:   receiver.Balance,
			BalanceAfter:    receiverAfter,
			Description:     "Transfer received",
			Metadata: models.Metadata{
				"sender_id": userID,
			},
		}
		if err := s.append(ctx, uow, debit, reference.KindDebit); err != nil {
			return err
		}
		if err := s.append(ctx, uow, credit, reference.KindCredit); err != nil {
			return err
		}
		if err := s.wallets.SetBalance(ctx, uow, sender.ID, senderAfter); err != nil {
			return err
		}
		if err := s.wallets.SetBalance(ctx, uow, receiver.ID, receiverAfter); err != nil {
			return err
		}
		if err := s.markSuccess(ctx, uow, debit); err != nil {
			return err
		}
		if err := s.markSuccess(ctx, uow, credit); err != nil {
			return err
		}
		result = &TransferResult{
			MovementResult: MovementResult{Transaction: debit, NewBalance: senderAfter},
			Recipient: RecipientSummary{
				Name:          recipient.DisplayName,
				AccountNumber: recipient.AccountNumber,
			},
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "transfer",
			zap.Uint("user_id", userID),
			zap.Uint("recipient_id", recipient.UserID),
			zap.String("amount", amount.String()),
		)
	}

	s.log.Info("transfer completed",
		zap.Uint("sender_id", userID),
		zap.Uint("recipient_id", recipient.UserID),
		zap.String("amount", amount.String()),
		zap.String("reference", result.Transaction.Reference),
	)
	return result, nil
}

// GetBalance reads the caller's balance without locking.
func (s *Service) GetBalance(ctx context.Context, userID uint) (*BalanceResult, error) {
	wallet, err := s.wallets.FindByOwner(ctx, userID)
	if err != nil {
		return nil, s.fail(err, "get_balance", zap.Uint("user_id", userID))
	}
	return &BalanceResult{Balance: wallet.Balance, Currency: wallet.Currency}, nil
}

// ListTransactions returns a newest-first page of the caller's ledger entries.
func (s *Service) ListTransactions(ctx context.Context, userID uint, page, limit int) (*HistoryResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = domain.DefaultPageSize
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}
	wallet, err := s.wallets.FindByOwner(ctx, userID)
	if err != nil {
		return nil, s.fail(err, "list_transactions", zap.Uint("user_id", userID))
	}
	entries, total, err := s.entries.ListByWallet(ctx, wallet.ID, page, limit)
	if err != nil {
		return nil, s.fail(err, "list_transactions", zap.Uint("user_id", userID))
	}
	return &HistoryResult{
		Transactions: entries,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// activeWallet resolves and pre-validates the caller's wallet without locks.
// The active flag is re-checked after locking; this early check just lets
// obviously bad requests fail before any row is touched.
func (s *Service) activeWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.directory.ResolveWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperr.New(apperr.NotFound, "wallet not found")
	}
	if !wallet.IsActive {
		return nil, apperr.New(apperr.Inactive, "wallet is inactive")
	}
	return wallet, nil
}

// lockPair locks two wallet rows in ascending id order and returns them as
// (sender, receiver).
func (s *Service) lockPair(ctx context.Context, uow UnitOfWork, senderID, receiverID uint) (*models.Wallet, *models.Wallet, error) {
	first, second := senderID, receiverID
	if second < first {
		first, second = second, first
	}
	a, err := s.wallets.LockWallet(ctx, uow, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.wallets.LockWallet(ctx, uow, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == senderID {
		return a, b, nil
	}
	return b, a, nil
}

// append writes entry in pending status with a fresh reference, retrying on
// the (theoretical) reference collision per the store contract.
func (s *Service) append(ctx context.Context, uow UnitOfWork, entry *models.Transaction, kind reference.Kind) error {
	for i := 0; i < appendAttempts; i++ {
		entry.Reference = s.refs.Generate(kind)
		err := s.entries.Append(ctx, uow, entry)
		if err == nil {
			return nil
		}
		if !apperr.Is(err, apperr.Conflict) {
			return err
		}
		s.log.Warn("reference collision, regenerating",
			zap.String("reference", entry.Reference),
			zap.Uint("wallet_id", entry.WalletID),
		)
	}
	return apperr.New(apperr.Internal, "could not allocate a unique reference")
}

// apply writes the entry's balance_after and flips it to success. Single-
// wallet movements only; transfers apply both legs explicitly.
func (s *Service) apply(ctx context.Context, uow UnitOfWork, entry *models.Transaction) error {
	if err := s.wallets.SetBalance(ctx, uow, entry.WalletID, entry.BalanceAfter); err != nil {
		return err
	}
	return s.markSuccess(ctx, uow, entry)
}

func (s *Service) markSuccess(ctx context.Context, uow UnitOfWork, entry *models.Transaction) error {
	if err := s.entries.MarkStatus(ctx, uow, entry.ID, domain.StatusSuccess); err != nil {
		return err
	}
	entry.Status = domain.StatusSuccess
	return nil
}

// fail routes an aborted operation's error: domain kinds propagate verbatim
// for user display; anything internal is logged with correlation fields and
// replaced by a generic retryable failure.
func (s *Service) fail(err error, op string, fields ...zap.Field) error {
	if apperr.KindOf(err) != apperr.Internal {
		return err
	}
	s.log.Error("ledger operation failed", append(fields, zap.String("op", op), zap.Error(err))...)
	return apperr.Wrap(apperr.Internal, "transaction failed, please try again", err)
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperr.New(apperr.InvalidArgument, "amount must be greater than zero")
	}
	return nil
}
