package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"purse/internal/apperr"
	"purse/internal/domain"
	"purse/internal/ledger"
	"purse/internal/middleware"
	"purse/pkg/gateway"
)

// LedgerService is what the wallet handler needs from the funds-movement
// engine.
type LedgerService interface {
	Fund(ctx context.Context, userID uint, amount decimal.Decimal) (*ledger.MovementResult, error)
	Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*ledger.MovementResult, error)
	Transfer(ctx context.Context, userID uint, accountNumber string, amount decimal.Decimal, description string) (*ledger.TransferResult, error)
	GetBalance(ctx context.Context, userID uint) (*ledger.BalanceResult, error)
	ListTransactions(ctx context.Context, userID uint, page, limit int) (*ledger.HistoryResult, error)
}

type WalletHandler struct {
	ledger   LedgerService
	provider gateway.Provider
	log      *zap.Logger
}

func NewWalletHandler(ledgerSvc LedgerService, provider gateway.Provider, log *zap.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledgerSvc, provider: provider, log: log}
}

type fundRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

type transferRequest struct {
	RecipientAccountNumber string          `json:"recipient_account_number" binding:"required"`
	Amount                 decimal.Decimal `json:"amount" binding:"required"`
	Description            string          `json:"description"`
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	res, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, res)
}

// Fund collects from the external rail first, then credits the wallet. The
// simulated provider always settles; a real one failing means no credit ever
// happens.
func (h *WalletHandler) Fund(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	userID := middleware.GetUserID(c)

	settlement, err := h.provider.Settle(c.Request.Context(), gateway.SettlementRequest{
		UserID:    userID,
		Amount:    req.Amount,
		Currency:  domain.Currency,
		Direction: gateway.DirectionCollect,
	})
	if err != nil {
		writeError(c, apperr.Wrap(apperr.Internal, "payment collection failed", err))
		return
	}

	res, err := h.ledger.Fund(c.Request.Context(), userID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	h.log.Info("funding settled",
		zap.String("reference", res.Transaction.Reference),
		zap.String("provider_ref", settlement.ProviderRef),
	)
	writeOK(c, gin.H{
		"transaction": res.Transaction,
		"new_balance": res.NewBalance,
	})
}

// Withdraw debits the wallet, then pays out through the external rail. A
// payout failure after the committed debit is logged under the ledger
// reference for out-of-band retry; the debit stands.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	userID := middleware.GetUserID(c)

	res, err := h.ledger.Withdraw(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := h.provider.Settle(c.Request.Context(), gateway.SettlementRequest{
		Reference: res.Transaction.Reference,
		UserID:    userID,
		Amount:    req.Amount,
		Currency:  domain.Currency,
		Direction: gateway.DirectionPayout,
	}); err != nil {
		h.log.Error("payout settlement failed, queue for retry",
			zap.String("reference", res.Transaction.Reference),
			zap.Error(err),
		)
	}
	writeOK(c, gin.H{
		"transaction": res.Transaction,
		"new_balance": res.NewBalance,
	})
}

func (h *WalletHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	userID := middleware.GetUserID(c)

	res, err := h.ledger.Transfer(c.Request.Context(), userID, req.RecipientAccountNumber, req.Amount, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, gin.H{
		"transaction": res.Transaction,
		"new_balance": res.NewBalance,
		"recipient":   res.Recipient,
	})
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", domain.DefaultPageSize)

	res, err := h.ledger.ListTransactions(c.Request.Context(), userID, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, res)
}
