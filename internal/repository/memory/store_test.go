package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
)

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := NewStore(0)
	repos := store.Repositories()
	ctx := context.Background()

	user := &domain.User{Username: "buyer", Roles: domain.NewRoleSet(domain.RoleBuyer), BuyerBalance: decimal.NewFromInt(100)}
	require.NoError(t, repos.Users.Create(ctx, user))

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context) error {
		user.BuyerBalance = decimal.Zero
		require.NoError(t, repos.Users.Update(ctx, user))
		require.NoError(t, repos.Cards.Create(ctx, &domain.Card{SellerID: "s", CardNumber: "4111111111111111"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repos.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.BuyerBalance.Equal(decimal.NewFromInt(100)))

	cards, err := repos.Cards.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestRunInTxCommits(t *testing.T) {
	store := NewStore(0)
	repos := store.Repositories()
	ctx := context.Background()

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		return repos.Orders.Create(ctx, &domain.Order{ID: "o1", CardID: "c1", Status: domain.OrderStatusPending})
	})
	require.NoError(t, err)

	order, err := repos.Orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestLookupMissReturnsNotFound(t *testing.T) {
	repos := NewStore(0).Repositories()
	_, err := repos.Cards.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repos.Tickets.AppendMessage(context.Background(), "missing", domain.TicketMessage{Text: "hi"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLatencyHonoursCancellation(t *testing.T) {
	repos := NewStore(time.Second).Repositories()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := repos.Users.List(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTicketMessagesAreCopied(t *testing.T) {
	repos := NewStore(0).Repositories()
	ctx := context.Background()

	ticket := &domain.Ticket{OwnerID: "u1", Title: "help", Status: domain.TicketStatusOpen,
		Messages: []domain.TicketMessage{{SenderID: "u1", Text: "first"}}}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	got, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	got.Messages[0].Text = "mutated"

	require.NoError(t, repos.Tickets.AppendMessage(ctx, ticket.ID, domain.TicketMessage{SenderID: "1", Text: "reply"}))

	again, err := repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, again.Messages, 2)
	assert.Equal(t, "first", again.Messages[0].Text)
	assert.Equal(t, "reply", again.Messages[1].Text)

	owner := "u1"
	list, err := repos.Tickets.List(ctx, repository.TicketFilter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEmailLookupIgnoresCase(t *testing.T) {
	repos := NewStore(0).Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Users.Create(ctx, &domain.User{ID: "3", Email: "Buyer@Site.com"}))

	got, err := repos.Users.GetByEmail(ctx, "buyer@site.com")
	require.NoError(t, err)
	assert.Equal(t, "3", got.ID)
}

func TestTransitionsRequireExpectedState(t *testing.T) {
	repos := NewStore(0).Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Cards.Create(ctx, &domain.Card{ID: "c1", SellerID: "s", CardNumber: "4111111111111111", Status: domain.CardStatusActive}))
	require.NoError(t, repos.Cards.UpdateStatus(ctx, "c1", domain.CardStatusActive, domain.CardStatusSold))
	assert.ErrorIs(t, repos.Cards.UpdateStatus(ctx, "c1", domain.CardStatusActive, domain.CardStatusSold), repository.ErrStale)

	w := &domain.Withdrawal{ID: "w1", SellerID: "s", Amount: decimal.NewFromInt(10), Status: domain.PayoutStatusPending}
	require.NoError(t, repos.Withdrawals.Create(ctx, w))
	w.Status = domain.PayoutStatusRejected
	require.NoError(t, repos.Withdrawals.Update(ctx, w))
	w.Status = domain.PayoutStatusCompleted
	assert.ErrorIs(t, repos.Withdrawals.Update(ctx, w), repository.ErrStale)

	o := &domain.Order{ID: "o1", CardID: "c1", Status: domain.OrderStatusPending}
	require.NoError(t, repos.Orders.Create(ctx, o))
	o.Status = domain.OrderStatusCancelled
	require.NoError(t, repos.Orders.Update(ctx, o))
	o.Status = domain.OrderStatusCompleted
	assert.ErrorIs(t, repos.Orders.Update(ctx, o), repository.ErrStale)

	d := &domain.Deposit{ID: "d1", UserID: "u", Amount: decimal.NewFromInt(5), Status: domain.PayoutStatusPending}
	require.NoError(t, repos.Deposits.Create(ctx, d))
	d.Status = domain.PayoutStatusCompleted
	require.NoError(t, repos.Deposits.Update(ctx, d))
	assert.ErrorIs(t, repos.Deposits.Update(ctx, d), repository.ErrStale)
}
