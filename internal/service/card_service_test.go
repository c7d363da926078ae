package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
)

func ordersForCard(t *testing.T, env *testEnv, cardID string) []domain.Order {
	t.Helper()
	all, err := env.repos.Orders.List(context.Background())
	require.NoError(t, err)
	var out []domain.Order
	for _, o := range all {
		if o.CardID == cardID {
			out = append(out, o)
		}
	}
	return out
}

func TestPurchaseSellsCardOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	got := env.record(events.EventCardPurchased)

	order, err := env.cards.Purchase(ctx, env.buyer(t), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, "3", order.BuyerID)
	assert.Equal(t, "2", order.SellerID)

	card, err := env.repos.Cards.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusSold, card.Status)
	assert.Len(t, ordersForCard(t, env, "c1"), 1)

	assert.True(t, env.buyer(t).BuyerBalance.Equal(dec("150")))
	assert.True(t, env.seller(t).AvailableSellerBalance().Equal(dec("2100")))
	require.Len(t, *got, 1)
	assert.Equal(t, "c1", (*got)[0].Subject)

	_, err = env.cards.Purchase(ctx, env.buyer(t), "c1")
	requireCode(t, err, "CONFLICT")
	assert.Len(t, ordersForCard(t, env, "c1"), 1)
}

func TestPurchaseRollsBackOnInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	card, err := env.cards.Create(ctx, env.seller(t), CardInput{
		CardNumber: "4012 8888 8888 1881", Expiration: "01/30", CVV: "999", Price: dec("300"),
	})
	require.NoError(t, err)

	_, err = env.cards.Purchase(ctx, env.buyer(t), card.ID)
	requireCode(t, err, "VALIDATION_FAILED")

	stored, err := env.repos.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, stored.Status)
	assert.Empty(t, ordersForCard(t, env, card.ID))
	assert.True(t, env.buyer(t).BuyerBalance.Equal(dec("250")))
}

func TestPurchaseRequiresBuyerRole(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.cards.Purchase(context.Background(), env.seller(t), "c1")
	requireCode(t, err, "FORBIDDEN")
}

func TestPurchaseBlockedCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	blocked, err := env.cards.Block(ctx, env.admin(t), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusBlocked, blocked.Status)

	_, err = env.cards.Purchase(ctx, env.buyer(t), "c1")
	requireCode(t, err, "CONFLICT")

	_, err = env.cards.Unblock(ctx, env.seller(t), "c1")
	require.NoError(t, err)
	_, err = env.cards.Purchase(ctx, env.buyer(t), "c1")
	require.NoError(t, err)
}

func TestBlockSoldCardRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.cards.Block(context.Background(), env.admin(t), "c2")
	requireCode(t, err, "CONFLICT")
}

func TestCardListVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sellerPage, err := env.cards.List(ctx, env.seller(t), listing.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, sellerPage.Total)
	for _, c := range sellerPage.Items {
		assert.Equal(t, "2", c.SellerID)
		assert.NotEmpty(t, c.CVV, "sellers see their own cards in full")
	}

	// The buyer sees the active card redacted and the sold card it owns.
	buyerPage, err := env.cards.List(ctx, env.buyer(t), listing.Query{Sort: "price"})
	require.NoError(t, err)
	require.Equal(t, 2, buyerPage.Total)
	byID := map[string]domain.Card{}
	for _, c := range buyerPage.Items {
		byID[c.ID] = c
	}
	assert.Equal(t, "411111******1111", byID["c1"].CardNumber)
	assert.Empty(t, byID["c1"].CVV)
	assert.Equal(t, "5555555555554444", byID["c2"].CardNumber)

	filtered, err := env.cards.List(ctx, env.admin(t), listing.Query{Filters: map[string]string{"status": "sold"}})
	require.NoError(t, err)
	require.Equal(t, 1, filtered.Total)
	assert.Equal(t, "c2", filtered.Items[0].ID)

	_, err = env.cards.List(ctx, env.admin(t), listing.Query{Filters: map[string]string{"cvv": "123"}})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestCreateCardValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.cards.Create(ctx, env.seller(t), CardInput{CardNumber: "4111111111111112", Expiration: "13/26", CVV: "1", Price: dec("0")})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = env.cards.Create(ctx, env.seller(t), CardInput{CardNumber: "4111 1111 1111 1111", Expiration: "12/26", CVV: "123", Price: dec("5")})
	requireCode(t, err, "CONFLICT")

	_, err = env.cards.Create(ctx, env.buyer(t), CardInput{CardNumber: "4012888888881881", Expiration: "12/26", CVV: "123", Price: dec("5")})
	requireCode(t, err, "FORBIDDEN")
}

func TestCreateBulkReportsBadLines(t *testing.T) {
	env := newTestEnv(t)
	text := "4012888888881881|12/27|123|15\n" +
		"\n" +
		"1234|12/27|123|15\n" +
		"4012888888881881,12/27,123,15\n" +
		"378282246310005|01/29|1234\n"

	result, err := env.cards.CreateBulk(context.Background(), env.seller(t), text)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.True(t, result.Created[1].Price.Equal(dec("1")), "price defaults to 1")

	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 3, result.Rejected[0].Line)
	assert.Equal(t, 4, result.Rejected[1].Line)
	assert.Equal(t, "duplicate of line 1", result.Rejected[1].Reason)
	assert.NotContains(t, result.Rejected[1].Input, "88888888")
}

func TestUpdateCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	price := dec("120")

	card, err := env.cards.Update(ctx, env.seller(t), "c1", CardUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, card.Price.Equal(price))

	_, err = env.cards.Update(ctx, env.seller(t), "c2", CardUpdate{Price: &price})
	requireCode(t, err, "CONFLICT")

	_, err = env.cards.Update(ctx, env.admin(t), "c1", CardUpdate{Price: &price})
	requireCode(t, err, "FORBIDDEN")
}
