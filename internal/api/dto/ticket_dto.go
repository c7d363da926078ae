package dto

import (
	"time"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title   string `json:"title"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Message string `json:"message"`
}

// TicketSummary response.
type TicketSummary struct {
	ID        string              `json:"id"`
	OwnerID   string              `json:"owner_id"`
	Title     string              `json:"title"`
	Reason    domain.TicketReason `json:"reason"`
	Status    domain.TicketStatus `json:"status"`
	LastReply string              `json:"last_reply"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Messages []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents thread message.
type TicketMessageResponse struct {
	SenderID string    `json:"sender_id"`
	Sender   string    `json:"sender"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// NewTicketSummary maps a ticket without its thread.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Reason:    t.Reason,
		Status:    t.Status,
		LastReply: t.LastReply(),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket with its thread.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	msgs := make([]TicketMessageResponse, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, TicketMessageResponse{
			SenderID: m.SenderID,
			Sender:   m.Sender,
			Message:  m.Text,
			Time:     m.Time,
		})
	}
	return TicketDetailResponse{TicketSummary: NewTicketSummary(t), Messages: msgs}
}
