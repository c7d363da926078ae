package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DepositCurrency is the rail a deposit arrives on.
type DepositCurrency string

const (
	CurrencyBTC  DepositCurrency = "BTC"
	CurrencyUSDT DepositCurrency = "USDT"
)

// ParseDepositCurrency validates a currency code.
func ParseDepositCurrency(s string) (DepositCurrency, error) {
	switch DepositCurrency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyBTC:
		return CurrencyBTC, nil
	case CurrencyUSDT:
		return CurrencyUSDT, nil
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Deposit funds a user's buyer balance once confirmed.
type Deposit struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Currency      DepositCurrency
	TxHash        string
	Status        PayoutStatus
	BalanceBefore *decimal.Decimal
	BalanceAfter  *decimal.Decimal
	CreatedAt     time.Time
	DecidedAt     *time.Time
}
