package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// WithdrawalRequest payload. Address falls back to the seller wallet.
type WithdrawalRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Address string          `json:"address"`
}

// ApproveWithdrawalRequest payload.
type ApproveWithdrawalRequest struct {
	TxID string `json:"tx_id"`
}

// DepositRequest payload.
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	TxHash   string          `json:"tx_hash"`
}

// WithdrawalResponse mirrors a withdrawal.
type WithdrawalResponse struct {
	ID         string              `json:"id"`
	SellerID   string              `json:"seller_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Commission decimal.Decimal     `json:"commission"`
	Received   decimal.Decimal     `json:"received"`
	Address    string              `json:"address"`
	Status     domain.PayoutStatus `json:"status"`
	TxID       *string             `json:"tx_id"`
	CreatedAt  time.Time           `json:"created_at"`
	DecidedAt  *time.Time          `json:"decided_at"`
}

// NewWithdrawalResponse maps a domain withdrawal.
func NewWithdrawalResponse(w *domain.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:         w.ID,
		SellerID:   w.SellerID,
		Amount:     w.Amount,
		Commission: w.Commission,
		Received:   w.Received,
		Address:    w.Address,
		Status:     w.Status,
		TxID:       w.TxID,
		CreatedAt:  w.CreatedAt,
		DecidedAt:  w.DecidedAt,
	}
}

// DepositResponse mirrors a deposit.
type DepositResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      domain.DepositCurrency `json:"currency"`
	TxHash        string                 `json:"tx_hash"`
	Status        domain.PayoutStatus    `json:"status"`
	BalanceBefore *decimal.Decimal       `json:"balance_before"`
	BalanceAfter  *decimal.Decimal       `json:"balance_after"`
	CreatedAt     time.Time              `json:"created_at"`
	DecidedAt     *time.Time             `json:"decided_at"`
}

// NewDepositResponse maps a domain deposit.
func NewDepositResponse(d *domain.Deposit) DepositResponse {
	return DepositResponse{
		ID:            d.ID,
		UserID:        d.UserID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		TxHash:        d.TxHash,
		Status:        d.Status,
		BalanceBefore: d.BalanceBefore,
		BalanceAfter:  d.BalanceAfter,
		CreatedAt:     d.CreatedAt,
		DecidedAt:     d.DecidedAt,
	}
}
