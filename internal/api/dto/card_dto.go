package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// CreateCardRequest payload.
type CreateCardRequest struct {
	CardNumber string          `json:"card_number"`
	Expiration string          `json:"expiration"`
	CVV        string          `json:"cvv"`
	Price      decimal.Decimal `json:"price"`
}

// UpdateCardRequest payload. Omitted fields are kept.
type UpdateCardRequest struct {
	CardNumber *string          `json:"card_number"`
	Expiration *string          `json:"expiration"`
	CVV        *string          `json:"cvv"`
	Price      *decimal.Decimal `json:"price"`
}

// BulkCardsRequest carries one card per line.
type BulkCardsRequest struct {
	Text string `json:"text"`
}

// CardResponse mirrors a card as presented to the caller.
type CardResponse struct {
	ID         string            `json:"id"`
	SellerID   string            `json:"seller_id"`
	CardNumber string            `json:"card_number"`
	Expiration string            `json:"expiration"`
	CVV        string            `json:"cvv,omitempty"`
	Price      decimal.Decimal   `json:"price"`
	Status     domain.CardStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewCardResponse maps a domain card.
func NewCardResponse(c *domain.Card) CardResponse {
	return CardResponse{
		ID:         c.ID,
		SellerID:   c.SellerID,
		CardNumber: c.CardNumber,
		Expiration: c.Expiration,
		CVV:        c.CVV,
		Price:      c.Price,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// OrderResponse mirrors an order.
type OrderResponse struct {
	ID        string             `json:"id"`
	CardID    string             `json:"card_id"`
	BuyerID   string             `json:"buyer_id"`
	SellerID  string             `json:"seller_id"`
	Price     decimal.Decimal    `json:"price"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewOrderResponse maps a domain order.
func NewOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		CardID:    o.CardID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Price:     o.Price,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
