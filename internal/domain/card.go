package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus enumerates listing states for a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "active"
	CardStatusSold    CardStatus = "sold"
	CardStatusBlocked CardStatus = "blocked"
)

// ParseCardStatus normalises a status name. The legacy "unsold" spelling
// means active.
func ParseCardStatus(s string) (CardStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "unsold":
		return CardStatusActive, nil
	case "sold":
		return CardStatusSold, nil
	case "blocked":
		return CardStatusBlocked, nil
	}
	return "", fmt.Errorf("unknown card status %q", s)
}

// Card is a payment-card listing owned by one seller.
type Card struct {
	ID         string
	SellerID   string
	CardNumber string
	Expiration string
	CVV        string
	Price      decimal.Decimal
	Status     CardStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var cardTransitions = map[CardStatus][]CardStatus{
	CardStatusActive:  {CardStatusSold, CardStatusBlocked},
	CardStatusBlocked: {CardStatusActive},
	CardStatusSold:    {},
}

// CanTransition reports whether the card may move from its status to next.
func (c *Card) CanTransition(next CardStatus) bool {
	for _, candidate := range cardTransitions[c.Status] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Redacted returns a copy with the number masked to its first six and last
// four digits and the CVV removed.
func (c Card) Redacted() Card {
	c.CardNumber = MaskCardNumber(c.CardNumber)
	c.CVV = ""
	return c
}

// MaskCardNumber keeps the BIN and last four digits of a card number.
func MaskCardNumber(number string) string {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	if len(digits) <= 10 {
		return strings.Repeat("*", len(digits))
	}
	masked := make([]byte, len(digits))
	for i := range digits {
		if i < 6 || i >= len(digits)-4 {
			masked[i] = digits[i]
		} else {
			masked[i] = '*'
		}
	}
	return string(masked)
}
