package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// TicketReason classifies why a ticket was opened.
type TicketReason string

const (
	TicketReasonPayment      TicketReason = "Payment"
	TicketReasonBecomeSeller TicketReason = "Become Seller Request"
	TicketReasonOther        TicketReason = "Other"
)

// ParseTicketReason matches a reason case-insensitively.
func ParseTicketReason(s string) (TicketReason, error) {
	for _, r := range []TicketReason{TicketReasonPayment, TicketReasonBecomeSeller, TicketReasonOther} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown ticket reason %q", s)
}

// TicketMessage is one entry of a ticket thread.
type TicketMessage struct {
	SenderID string
	Sender   string
	Text     string
	Time     time.Time
}

// Ticket is a support conversation. Messages are append-only.
type Ticket struct {
	ID        string
	OwnerID   string
	Title     string
	Reason    TicketReason
	Messages  []TicketMessage
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastReply returns the sender of the newest message.
func (t *Ticket) LastReply() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[len(t.Messages)-1].Sender
}
