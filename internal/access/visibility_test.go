package access

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cardmarket/internal/domain"
)

func newActor(id string, roles ...domain.Role) *domain.User {
	u := &domain.User{ID: id, Roles: domain.NewRoleSet(roles...), Status: domain.UserStatusActive}
	u.NormalizeRoleFields()
	return u
}

func fixtureCards() []domain.Card {
	return []domain.Card{
		{ID: "c1", SellerID: "2", Status: domain.CardStatusActive, CardNumber: "4111111111111111", CVV: "123"},
		{ID: "c2", SellerID: "2", Status: domain.CardStatusSold, CardNumber: "5555555555554444", CVV: "321"},
		{ID: "c3", SellerID: "4", Status: domain.CardStatusBlocked},
		{ID: "c4", SellerID: "4", Status: domain.CardStatusActive},
		{ID: "c5", SellerID: "4", Status: domain.CardStatusSold},
	}
}

func fixtureOrders() []domain.Order {
	return []domain.Order{
		{ID: "o1", CardID: "c2", BuyerID: "3", SellerID: "2", Status: domain.OrderStatusCompleted},
		{ID: "o2", CardID: "c5", BuyerID: "3", SellerID: "4", Status: domain.OrderStatusPending},
		{ID: "o3", CardID: "c1", BuyerID: "9", SellerID: "2", Status: domain.OrderStatusCancelled},
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func cardIDs(cards []domain.Card) []string {
	return ids(cards, func(c domain.Card) string { return c.ID })
}

func TestBuyerSeesOnlyActiveCards(t *testing.T) {
	buyer := newActor("3", domain.RoleBuyer)
	cards := []domain.Card{
		{ID: "c1", Status: domain.CardStatusActive},
		{ID: "c2", Status: domain.CardStatusSold},
	}

	visible := VisibleCards(buyer, cards, nil)

	assert.Equal(t, []string{"c1"}, cardIDs(visible))
}

func TestBuyerSeesCardsOfOwnCompletedOrders(t *testing.T) {
	buyer := newActor("3", domain.RoleBuyer)

	visible := VisibleCards(buyer, fixtureCards(), fixtureOrders())

	// c5 belongs to a pending order so it stays hidden.
	assert.Equal(t, []string{"c1", "c2", "c4"}, cardIDs(visible))
	for _, c := range visible {
		owned := c.Status == domain.CardStatusActive
		for _, o := range fixtureOrders() {
			if o.CardID == c.ID && o.BuyerID == buyer.ID {
				owned = true
			}
		}
		assert.True(t, owned, c.ID)
	}
}

func TestSellerSeesExactlyOwnCards(t *testing.T) {
	actors := []*domain.User{
		newActor("2", domain.RoleSeller),
		newActor("2", domain.RoleSeller, domain.RoleBuyer),
		newActor("4", domain.RoleSeller),
		newActor("7", domain.RoleSeller),
	}
	for _, actor := range actors {
		var want []string
		for _, c := range fixtureCards() {
			if c.SellerID == actor.SellerKey() {
				want = append(want, c.ID)
			}
		}
		got := cardIDs(VisibleCards(actor, fixtureCards(), fixtureOrders()))
		if want == nil {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got, actor.Roles.String())
	}
}

func TestAdminSeesEverything(t *testing.T) {
	admin := newActor("1", domain.RoleAdmin)

	assert.Len(t, VisibleCards(admin, fixtureCards(), fixtureOrders()), 5)
	assert.Len(t, VisibleOrders(admin, fixtureOrders()), 3)

	users, ok := VisibleUsers(admin, []domain.User{*newActor("2", domain.RoleSeller), *newActor("3", domain.RoleBuyer)})
	require.True(t, ok)
	assert.Len(t, users, 2)
}

func TestFilteringIsIdempotent(t *testing.T) {
	actors := []*domain.User{
		newActor("1", domain.RoleAdmin),
		newActor("2", domain.RoleSeller),
		newActor("3", domain.RoleBuyer),
		newActor("2", domain.RoleSeller, domain.RoleBuyer),
	}
	for _, actor := range actors {
		once := VisibleCards(actor, fixtureCards(), fixtureOrders())
		twice := VisibleCards(actor, once, fixtureOrders())
		assert.Equal(t, once, twice)

		onceOrders := VisibleOrders(actor, fixtureOrders())
		assert.Equal(t, onceOrders, VisibleOrders(actor, onceOrders))
	}
}

func TestOrdersByRole(t *testing.T) {
	orderIDs := func(os []domain.Order) []string {
		return ids(os, func(o domain.Order) string { return o.ID })
	}

	assert.Equal(t, []string{"o1", "o3"}, orderIDs(VisibleOrders(newActor("2", domain.RoleSeller), fixtureOrders())))
	assert.Equal(t, []string{"o1", "o2"}, orderIDs(VisibleOrders(newActor("3", domain.RoleBuyer), fixtureOrders())))
	assert.Equal(t, []string{"o2"}, orderIDs(VisibleOrders(newActor("4", domain.RoleSeller), fixtureOrders())))

	both := newActor("9", domain.RoleSeller, domain.RoleBuyer)
	assert.Equal(t, []string{"o3"}, orderIDs(VisibleOrders(both, fixtureOrders())))
}

func TestNonAdminsAreDeniedUsers(t *testing.T) {
	users := []domain.User{*newActor("1", domain.RoleAdmin)}
	for _, actor := range []*domain.User{newActor("2", domain.RoleSeller), newActor("3", domain.RoleBuyer), nil} {
		visible, ok := VisibleUsers(actor, users)
		assert.False(t, ok)
		assert.Empty(t, visible)
	}
}

func TestSellersAndWithdrawals(t *testing.T) {
	users := []domain.User{
		*newActor("1", domain.RoleAdmin),
		*newActor("2", domain.RoleSeller),
		*newActor("4", domain.RoleSeller),
		*newActor("3", domain.RoleBuyer),
	}
	withdrawals := []domain.Withdrawal{
		{ID: "w1", SellerID: "2", Amount: decimal.NewFromInt(10)},
		{ID: "w2", SellerID: "4", Amount: decimal.NewFromInt(20)},
	}

	sellers, ok := VisibleSellers(newActor("1", domain.RoleAdmin), users)
	require.True(t, ok)
	assert.Len(t, sellers, 2)

	sellers, ok = VisibleSellers(newActor("2", domain.RoleSeller), users)
	require.True(t, ok)
	require.Len(t, sellers, 1)
	assert.Equal(t, "2", sellers[0].ID)

	_, ok = VisibleSellers(newActor("3", domain.RoleBuyer), users)
	assert.False(t, ok)

	ws, ok := VisibleWithdrawals(newActor("4", domain.RoleSeller), withdrawals)
	require.True(t, ok)
	require.Len(t, ws, 1)
	assert.Equal(t, "w2", ws[0].ID)

	_, ok = VisibleWithdrawals(newActor("3", domain.RoleBuyer), withdrawals)
	assert.False(t, ok)
}

func TestBlockedActorSeesNothing(t *testing.T) {
	admin := newActor("1", domain.RoleAdmin)
	admin.Status = domain.UserStatusBlocked

	assert.Empty(t, VisibleCards(admin, fixtureCards(), nil))
	assert.Empty(t, VisibleOrders(admin, fixtureOrders()))
	_, ok := VisibleUsers(admin, nil)
	assert.False(t, ok)
}

func TestPresentCardRedactsForeignCards(t *testing.T) {
	buyer := newActor("3", domain.RoleBuyer)
	owned := OwnedCardIDs(buyer, fixtureOrders())
	cards := fixtureCards()

	active := PresentCard(buyer, cards[0], owned)
	assert.Equal(t, "411111******1111", active.CardNumber)
	assert.Empty(t, active.CVV)

	bought := PresentCard(buyer, cards[1], owned)
	assert.Equal(t, "5555555555554444", bought.CardNumber)
	assert.Equal(t, "321", bought.CVV)

	sellerView := PresentCard(newActor("2", domain.RoleSeller), cards[0], nil)
	assert.Equal(t, "123", sellerView.CVV)
}

func TestTicketsAndDeposits(t *testing.T) {
	tickets := []domain.Ticket{{ID: "t1", OwnerID: "3"}, {ID: "t2", OwnerID: "2"}}
	assert.Len(t, VisibleTickets(newActor("1", domain.RoleAdmin), tickets), 2)
	visible := VisibleTickets(newActor("3", domain.RoleBuyer), tickets)
	require.Len(t, visible, 1)
	assert.Equal(t, "t1", visible[0].ID)

	deposits := []domain.Deposit{{ID: "d1", UserID: "3"}, {ID: "d2", UserID: "5"}}
	assert.Len(t, VisibleDeposits(newActor("1", domain.RoleAdmin), deposits), 2)
	assert.Len(t, VisibleDeposits(newActor("3", domain.RoleBuyer), deposits), 1)
}
