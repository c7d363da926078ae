package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// TicketFilter narrows ticket lookups.
type TicketFilter struct {
	OwnerID  *string
	Statuses []domain.TicketStatus
	Reason   *domain.TicketReason
}

// TicketRepository encapsulates ticket persistence. Messages are stored
// alongside their ticket and loaded with it.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	AppendMessage(ctx context.Context, ticketID string, msg domain.TicketMessage) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, title, reason, status, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	ensureID(&ticket.ID)
	q := conn(ctx, r.pool)
	const query = `
        INSERT INTO tickets (id, owner_id, title, reason, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	if err := q.QueryRow(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.Title,
		ticket.Reason,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}
	for _, msg := range ticket.Messages {
		if err := insertMessage(ctx, q, ticket.ID, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `UPDATE tickets SET title=$1, reason=$2, status=$3, updated_at=NOW() WHERE id=$4`
	return execOne(ctx, conn(ctx, r.pool), query, ticket.Title, ticket.Reason, ticket.Status, ticket.ID)
}

func (r *ticketRepository) AppendMessage(ctx context.Context, ticketID string, msg domain.TicketMessage) error {
	q := conn(ctx, r.pool)
	if err := execOne(ctx, q, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, ticketID); err != nil {
		return err
	}
	return insertMessage(ctx, q, ticketID, msg)
}

func insertMessage(ctx context.Context, q querier, ticketID string, msg domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_id, sender, body, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := q.Exec(ctx, query, ticketID, msg.SenderID, msg.Sender, msg.Text, msg.Time)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	q := conn(ctx, r.pool)
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`+forUpdate(ctx), id).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Title,
		&ticket.Reason,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	tickets := []domain.Ticket{ticket}
	if err := r.attachMessages(ctx, q, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Reason != nil {
		args = append(args, *filter.Reason)
		clauses = append(clauses, fmt.Sprintf("reason=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	q := conn(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.attachMessages(ctx, q, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) attachMessages(ctx context.Context, q querier, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, len(tickets))
	index := make(map[string]int, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
		index[t.ID] = i
	}
	const query = `
        SELECT ticket_id, sender_id, sender, body, created_at
        FROM ticket_messages WHERE ticket_id = ANY($1) ORDER BY created_at ASC, id ASC`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ticketID string
			msg      domain.TicketMessage
		)
		if err := rows.Scan(&ticketID, &msg.SenderID, &msg.Sender, &msg.Text, &msg.Time); err != nil {
			return err
		}
		if i, ok := index[ticketID]; ok {
			tickets[i].Messages = append(tickets[i].Messages, msg)
		}
	}
	return rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.Title,
			&ticket.Reason,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
