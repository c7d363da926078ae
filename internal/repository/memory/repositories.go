package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// Repositories returns repository views over the store. The store itself
// is the transaction runner.
func (s *Store) Repositories() repository.Set {
	return repository.Set{
		Users:          &userRepo{s},
		Cards:          &cardRepo{s},
		Orders:         &orderRepo{s},
		Withdrawals:    &withdrawalRepo{s},
		Deposits:       &depositRepo{s},
		Tickets:        &ticketRepo{s},
		PasswordResets: &resetRepo{s},
		Tx:             s,
	}
}

func now() time.Time { return time.Now().UTC() }

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func duplicate(kind, id string) error {
	return apperrors.NewConflict(kind+" already exists", map[string]any{"id": id})
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func() error {
		assignID(&user.ID)
		if _, ok := r.s.users[user.ID]; ok {
			return duplicate("user", user.ID)
		}
		user.NormalizeRoleFields()
		if user.RegisteredAt.IsZero() {
			user.RegisteredAt = now()
		}
		user.UpdatedAt = user.RegisteredAt
		r.s.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		user.NormalizeRoleFields()
		user.UpdatedAt = now()
		r.s.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepo) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	err := r.s.read(ctx, func() error {
		for _, u := range r.s.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *userRepo) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.s.read(ctx, func() error {
		out = sortedValues(r.s.users, func(a, b domain.User) int {
			return cmp.Or(a.RegisteredAt.Compare(b.RegisteredAt), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

type cardRepo struct{ s *Store }

func (r *cardRepo) Create(ctx context.Context, card *domain.Card) error {
	return r.s.write(ctx, func() error {
		assignID(&card.ID)
		if _, ok := r.s.cards[card.ID]; ok {
			return duplicate("card", card.ID)
		}
		if card.CreatedAt.IsZero() {
			card.CreatedAt = now()
		}
		card.UpdatedAt = card.CreatedAt
		r.s.cards[card.ID] = *card
		return nil
	})
}

func (r *cardRepo) Update(ctx context.Context, card *domain.Card) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.cards[card.ID]; !ok {
			return repository.ErrNotFound
		}
		card.UpdatedAt = now()
		r.s.cards[card.ID] = *card
		return nil
	})
}

func (r *cardRepo) UpdateStatus(ctx context.Context, id string, from, to domain.CardStatus) error {
	return r.s.write(ctx, func() error {
		card, ok := r.s.cards[id]
		if !ok {
			return repository.ErrNotFound
		}
		if card.Status != from {
			return repository.ErrStale
		}
		card.Status = to
		card.UpdatedAt = now()
		r.s.cards[id] = card
		return nil
	})
}

func (r *cardRepo) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	var found *domain.Card
	err := r.s.read(ctx, func() error {
		card, ok := r.s.cards[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &card
		return nil
	})
	return found, err
}

func (r *cardRepo) GetByNumber(ctx context.Context, number string) (*domain.Card, error) {
	var found *domain.Card
	err := r.s.read(ctx, func() error {
		for _, card := range r.s.cards {
			if card.CardNumber == number {
				card := card
				found = &card
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *cardRepo) List(ctx context.Context) ([]domain.Card, error) {
	var out []domain.Card
	err := r.s.read(ctx, func() error {
		out = sortedValues(r.s.cards, func(a, b domain.Card) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	return r.s.write(ctx, func() error {
		assignID(&order.ID)
		if _, ok := r.s.orders[order.ID]; ok {
			return duplicate("order", order.ID)
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now()
		}
		order.UpdatedAt = order.CreatedAt
		r.s.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) Update(ctx context.Context, order *domain.Order) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.orders[order.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Status != domain.OrderStatusPending {
			return repository.ErrStale
		}
		stored.Status = order.Status
		stored.UpdatedAt = now()
		r.s.orders[order.ID] = stored
		*order = stored
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var found *domain.Order
	err := r.s.read(ctx, func() error {
		order, ok := r.s.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &order
		return nil
	})
	return found, err
}

func (r *orderRepo) List(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	err := r.s.read(ctx, func() error {
		out = sortedValues(r.s.orders, func(a, b domain.Order) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

type withdrawalRepo struct{ s *Store }

func (r *withdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	return r.s.write(ctx, func() error {
		assignID(&w.ID)
		if _, ok := r.s.withdrawals[w.ID]; ok {
			return duplicate("withdrawal", w.ID)
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now()
		}
		r.s.withdrawals[w.ID] = *w
		return nil
	})
}

func (r *withdrawalRepo) Update(ctx context.Context, w *domain.Withdrawal) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.withdrawals[w.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Status != domain.PayoutStatusPending {
			return repository.ErrStale
		}
		stored.Status = w.Status
		stored.TxID = w.TxID
		stored.DecidedAt = w.DecidedAt
		r.s.withdrawals[w.ID] = stored
		return nil
	})
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	var found *domain.Withdrawal
	err := r.s.read(ctx, func() error {
		w, ok := r.s.withdrawals[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &w
		return nil
	})
	return found, err
}

func (r *withdrawalRepo) List(ctx context.Context) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	err := r.s.read(ctx, func() error {
		out = sortedValues(r.s.withdrawals, func(a, b domain.Withdrawal) int {
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

type depositRepo struct{ s *Store }

func (r *depositRepo) Create(ctx context.Context, d *domain.Deposit) error {
	return r.s.write(ctx, func() error {
		assignID(&d.ID)
		if _, ok := r.s.deposits[d.ID]; ok {
			return duplicate("deposit", d.ID)
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now()
		}
		r.s.deposits[d.ID] = *d
		return nil
	})
}

func (r *depositRepo) Update(ctx context.Context, d *domain.Deposit) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.deposits[d.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Status != domain.PayoutStatusPending {
			return repository.ErrStale
		}
		stored.Status = d.Status
		stored.BalanceBefore = d.BalanceBefore
		stored.BalanceAfter = d.BalanceAfter
		stored.DecidedAt = d.DecidedAt
		r.s.deposits[d.ID] = stored
		return nil
	})
}

func (r *depositRepo) GetByID(ctx context.Context, id string) (*domain.Deposit, error) {
	var found *domain.Deposit
	err := r.s.read(ctx, func() error {
		d, ok := r.s.deposits[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &d
		return nil
	})
	return found, err
}

func (r *depositRepo) List(ctx context.Context) ([]domain.Deposit, error) {
	var out []domain.Deposit
	err := r.s.read(ctx, func() error {
		out = sortedValues(r.s.deposits, func(a, b domain.Deposit) int {
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func() error {
		assignID(&ticket.ID)
		if _, ok := r.s.tickets[ticket.ID]; ok {
			return duplicate("ticket", ticket.ID)
		}
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = now()
		}
		ticket.UpdatedAt = ticket.CreatedAt
		r.s.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		stored.Title = ticket.Title
		stored.Reason = ticket.Reason
		stored.Status = ticket.Status
		stored.UpdatedAt = now()
		r.s.tickets[ticket.ID] = stored
		return nil
	})
}

func (r *ticketRepo) AppendMessage(ctx context.Context, ticketID string, msg domain.TicketMessage) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.tickets[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		stored.Messages = append(slices.Clone(stored.Messages), msg)
		stored.UpdatedAt = now()
		r.s.tickets[ticketID] = stored
		return nil
	})
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := r.s.read(ctx, func() error {
		ticket, ok := r.s.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		ticket = cloneTicket(ticket)
		found = &ticket
		return nil
	})
	return found, err
}

func (r *ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	err := r.s.read(ctx, func() error {
		all := sortedValues(r.s.tickets, func(a, b domain.Ticket) int {
			return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
		})
		for _, t := range all {
			if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
				continue
			}
			if filter.Reason != nil && t.Reason != *filter.Reason {
				continue
			}
			out = append(out, cloneTicket(t))
		}
		return nil
	})
	return out, err
}

type resetRepo struct{ s *Store }

func (r *resetRepo) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	return r.s.write(ctx, func() error {
		assignID(&token.ID)
		if token.CreatedAt.IsZero() {
			token.CreatedAt = now()
		}
		r.s.resets[token.ID] = *token
		return nil
	})
}

func (r *resetRepo) GetByToken(ctx context.Context, value string) (*domain.PasswordResetToken, error) {
	var found *domain.PasswordResetToken
	err := r.s.read(ctx, func() error {
		for _, t := range r.s.resets {
			if t.Token == value {
				t := t
				found = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *resetRepo) MarkUsed(ctx context.Context, id string) error {
	return r.s.write(ctx, func() error {
		t, ok := r.s.resets[id]
		if !ok {
			return repository.ErrNotFound
		}
		if t.UsedAt != nil {
			return repository.ErrStale
		}
		used := now()
		t.UsedAt = &used
		r.s.resets[id] = t
		return nil
	})
}
