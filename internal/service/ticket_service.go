package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

const (
	maxTicketTitle   = 120
	maxTicketMessage = 4000
	previewLength    = 80
)

// TicketService coordinates support ticket workflows.
type TicketService struct {
	tickets repository.TicketRepository
	tx      repository.TxRunner
	events  publisher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Repos      repository.Set
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title   string
	Reason  string
	Message string
}

var ticketFields = listing.Fields[domain.Ticket]{
	Search: []func(*domain.Ticket) string{
		func(t *domain.Ticket) string { return t.Title },
		func(t *domain.Ticket) string { return t.ID },
	},
	Filter: map[string]func(*domain.Ticket) string{
		"status":   func(t *domain.Ticket) string { return string(t.Status) },
		"reason":   func(t *domain.Ticket) string { return string(t.Reason) },
		"owner_id": func(t *domain.Ticket) string { return t.OwnerID },
	},
	Sort: map[string]func(a, b *domain.Ticket) int{
		"created_at": func(a, b *domain.Ticket) int { return compareTime(a.CreatedAt, b.CreatedAt) },
		"updated_at": func(a, b *domain.Ticket) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
		"title":      func(a, b *domain.Ticket) int { return compareString(a.Title, b.Title) },
		"status":     func(a, b *domain.Ticket) int { return compareString(a.Status, b.Status) },
	},
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets: deps.Repos.Tickets,
		tx:      deps.Repos.Tx,
		events:  newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// List returns every ticket to admins and their own to everyone else.
func (s *TicketService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.Ticket], error) {
	if actor == nil {
		return listing.Page[domain.Ticket]{}, apperrors.NewForbidden("unauthorized")
	}
	var filter repository.TicketFilter
	if !actor.IsAdmin() {
		filter.OwnerID = &actor.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return listing.Page[domain.Ticket]{}, apperrors.MapError(err)
	}
	return listing.Apply(access.VisibleTickets(actor, tickets), q, ticketFields)
}

// Get returns one ticket with its messages.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapNotFound(err, "ticket", id)
	}
	if !access.TicketVisible(actor, ticket) {
		return nil, apperrors.NewForbidden("unauthorized")
	}
	return ticket, nil
}

// Create opens a ticket with its first message.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := access.Authorize(actor, access.ActionTicketCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Message)

	problems := map[string]any{}
	if title == "" || utf8.RuneCountInString(title) > maxTicketTitle {
		problems["title"] = "title is required and must be at most 120 characters"
	}
	reason, err := domain.ParseTicketReason(input.Reason)
	if err != nil {
		problems["reason"] = "reason must be Payment, Become Seller Request or Other"
	}
	if msg := messageProblem(text); msg != "" {
		problems["message"] = msg
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", problems)
	}

	ticket := &domain.Ticket{
		OwnerID:  actor.ID,
		Title:    title,
		Reason:   reason,
		Status:   domain.TicketStatusOpen,
		Messages: []domain.TicketMessage{newMessage(actor, text)},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, actor.ID, events.TicketCreatedPayload{
		Title:  ticket.Title,
		Reason: ticket.Reason,
	}))
	return ticket, nil
}

// Reply appends a message to an open ticket.
func (s *TicketService) Reply(ctx context.Context, actor *domain.User, id, text string) (*domain.Ticket, error) {
	text = strings.TrimSpace(text)
	if msg := messageProblem(text); msg != "" {
		return nil, apperrors.NewFieldError("message", msg)
	}

	var ticket *domain.Ticket
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "ticket", id)
		}
		if err := access.AuthorizeTicket(actor, access.ActionTicketReply, ticket); err != nil {
			return err
		}
		if ticket.Status != domain.TicketStatusOpen {
			return apperrors.NewConflict("ticket is closed", map[string]any{"id": id})
		}
		msg := newMessage(actor, text)
		if err := s.tickets.AppendMessage(ctx, ticket.ID, msg); err != nil {
			return err
		}
		ticket.Messages = append(ticket.Messages, msg)
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventTicketReplied, ticket.ID, actor.ID, events.TicketRepliedPayload{
		Sender:      actor.Username,
		BodyPreview: preview(text),
	}))
	return ticket, nil
}

// Close closes an open ticket.
func (s *TicketService) Close(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.setStatus(ctx, actor, id, domain.TicketStatusClosed)
}

// Reopen reopens a closed ticket.
func (s *TicketService) Reopen(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	return s.setStatus(ctx, actor, id, domain.TicketStatusOpen)
}

func (s *TicketService) setStatus(ctx context.Context, actor *domain.User, id string, next domain.TicketStatus) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "ticket", id)
		}
		if err := access.AuthorizeTicket(actor, access.ActionTicketModerate, ticket); err != nil {
			return err
		}
		if ticket.Status == next {
			return apperrors.NewConflict("ticket is already "+string(next), map[string]any{"id": id})
		}
		ticket.Status = next
		return s.tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func newMessage(actor *domain.User, text string) domain.TicketMessage {
	return domain.TicketMessage{
		SenderID: actor.ID,
		Sender:   actor.Username,
		Text:     text,
		Time:     utcNow(),
	}
}

func messageProblem(text string) string {
	switch {
	case text == "":
		return "message is required"
	case utf8.RuneCountInString(text) > maxTicketMessage:
		return "message is too long"
	}
	return ""
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}
