package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates purchase states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order links one card to one buyer.
type Order struct {
	ID        string
	CardID    string
	BuyerID   string
	SellerID  string
	Price     decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending reports whether the order still awaits fulfilment.
func (o *Order) IsPending() bool { return o.Status == OrderStatusPending }
