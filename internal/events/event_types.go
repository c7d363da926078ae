package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCardPurchased       EventType = "card_purchased"
	EventWithdrawalRequested EventType = "withdrawal_requested"
	EventWithdrawalDecided   EventType = "withdrawal_decided"
	EventDepositRequested    EventType = "deposit_requested"
	EventDepositDecided      EventType = "deposit_decided"
	EventUserStatusChanged   EventType = "user_status_changed"
	EventSellerPromoted      EventType = "seller_promoted"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketReplied       EventType = "ticket_replied"
)

// Event represents a domain event emitted by services. Subject is the id of
// the record the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, subject, actorID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CardPurchasedPayload payload.
type CardPurchasedPayload struct {
	OrderID  string             `json:"order_id"`
	BuyerID  string             `json:"buyer_id"`
	SellerID string             `json:"seller_id"`
	Price    decimal.Decimal    `json:"price"`
	Status   domain.OrderStatus `json:"status"`
}

// WithdrawalPayload is shared by request and decision events.
type WithdrawalPayload struct {
	SellerID string              `json:"seller_id"`
	Amount   decimal.Decimal     `json:"amount"`
	Received decimal.Decimal     `json:"received"`
	Status   domain.PayoutStatus `json:"status"`
}

// DepositPayload is shared by request and decision events.
type DepositPayload struct {
	UserID   string                 `json:"user_id"`
	Amount   decimal.Decimal        `json:"amount"`
	Currency domain.DepositCurrency `json:"currency"`
	Status   domain.PayoutStatus    `json:"status"`
}

// UserStatusChangedPayload payload.
type UserStatusChangedPayload struct {
	OldStatus domain.UserStatus `json:"old_status"`
	NewStatus domain.UserStatus `json:"new_status"`
}

// SellerPromotedPayload payload.
type SellerPromotedPayload struct {
	Commission decimal.Decimal `json:"commission"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title  string              `json:"title"`
	Reason domain.TicketReason `json:"reason"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	Sender      string `json:"sender"`
	BodyPreview string `json:"body_preview"`
}
