package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is shared by withdrawals and deposits: a pending request that
// an admin either completes or rejects.
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusRejected  PayoutStatus = "rejected"
)

// Withdrawal is a seller's request to cash out seller balance. Amount is
// held from the balance at request time.
type Withdrawal struct {
	ID         string
	SellerID   string
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Received   decimal.Decimal
	Address    string
	Status     PayoutStatus
	TxID       *string
	CreatedAt  time.Time
	DecidedAt  *time.Time
}

// NetOfCommission returns amount minus percent commission, rounded to cents.
func NetOfCommission(amount, percent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return amount.Mul(hundred.Sub(percent)).Div(hundred).Round(2)
}
