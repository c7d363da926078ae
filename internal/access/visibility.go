package access

import "github.com/spec-kit/cardmarket/internal/domain"

// OwnedCardIDs returns the cards the actor bought through completed orders.
func OwnedCardIDs(actor *domain.User, orders []domain.Order) map[string]struct{} {
	owned := make(map[string]struct{})
	if actor == nil {
		return owned
	}
	for i := range orders {
		if orders[i].BuyerID == actor.ID && orders[i].Status == domain.OrderStatusCompleted {
			owned[orders[i].CardID] = struct{}{}
		}
	}
	return owned
}

// CardVisible applies the card rule for one record. The dominant role
// decides: admins see everything, sellers see their own listings, buyers see
// active cards plus the ones they own.
func CardVisible(actor *domain.User, card *domain.Card, owned map[string]struct{}) bool {
	if actor == nil || actor.IsBlocked() {
		return false
	}
	primary, ok := actor.Roles.Primary()
	if !ok {
		return false
	}
	switch primary {
	case domain.RoleAdmin:
		return true
	case domain.RoleSeller:
		return actor.SellerKey() != "" && card.SellerID == actor.SellerKey()
	case domain.RoleBuyer:
		if card.Status == domain.CardStatusActive {
			return true
		}
		_, mine := owned[card.ID]
		return mine
	}
	return false
}

// VisibleCards filters cards down to what the actor may see. orders is the
// full order collection; only the actor's completed purchases matter.
func VisibleCards(actor *domain.User, cards []domain.Card, orders []domain.Order) []domain.Card {
	owned := OwnedCardIDs(actor, orders)
	return filter(cards, func(c *domain.Card) bool {
		return CardVisible(actor, c, owned)
	})
}

// PresentCard hides the number and CVV of cards the actor neither sells
// nor owns.
func PresentCard(actor *domain.User, card domain.Card, owned map[string]struct{}) domain.Card {
	if actor.IsAdmin() || ownsCard(actor, &card) {
		return card
	}
	if _, mine := owned[card.ID]; mine {
		return card
	}
	return card.Redacted()
}

// OrderVisible lets admins see every order, sellers their sales and buyers
// their purchases. An actor holding both seller and buyer sees both.
func OrderVisible(actor *domain.User, order *domain.Order) bool {
	if actor == nil || actor.IsBlocked() {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.IsSeller() && order.SellerID == actor.ID {
		return true
	}
	return actor.IsBuyer() && order.BuyerID == actor.ID
}

// VisibleOrders filters orders with OrderVisible.
func VisibleOrders(actor *domain.User, orders []domain.Order) []domain.Order {
	return filter(orders, func(o *domain.Order) bool {
		return OrderVisible(actor, o)
	})
}

// VisibleUsers returns every user for admins. Anyone else is denied.
func VisibleUsers(actor *domain.User, users []domain.User) ([]domain.User, bool) {
	if !isActiveAdmin(actor) {
		return nil, false
	}
	return filter(users, func(*domain.User) bool { return true }), true
}

// VisibleSellers returns seller accounts: all of them for admins, only
// their own for sellers. Buyers are denied.
func VisibleSellers(actor *domain.User, users []domain.User) ([]domain.User, bool) {
	switch {
	case isActiveAdmin(actor):
		return filter(users, func(u *domain.User) bool { return u.IsSeller() }), true
	case actor != nil && actor.IsSeller() && !actor.IsBlocked():
		return filter(users, func(u *domain.User) bool { return u.IsSeller() && u.ID == actor.ID }), true
	}
	return nil, false
}

// VisibleWithdrawals returns all withdrawals for admins and the seller's own
// for sellers. Buyers are denied.
func VisibleWithdrawals(actor *domain.User, withdrawals []domain.Withdrawal) ([]domain.Withdrawal, bool) {
	switch {
	case isActiveAdmin(actor):
		return filter(withdrawals, func(*domain.Withdrawal) bool { return true }), true
	case actor != nil && actor.IsSeller() && !actor.IsBlocked():
		key := actor.SellerKey()
		return filter(withdrawals, func(w *domain.Withdrawal) bool { return w.SellerID == key }), true
	}
	return nil, false
}

// VisibleDeposits returns all deposits for admins, otherwise the actor's own.
func VisibleDeposits(actor *domain.User, deposits []domain.Deposit) []domain.Deposit {
	return filter(deposits, func(d *domain.Deposit) bool {
		return isActiveAdmin(actor) || (actor != nil && !actor.IsBlocked() && d.UserID == actor.ID)
	})
}

// TicketVisible lets admins see every ticket and others their own.
func TicketVisible(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || actor.IsBlocked() {
		return false
	}
	return actor.IsAdmin() || ticket.OwnerID == actor.ID
}

// VisibleTickets filters tickets with TicketVisible.
func VisibleTickets(actor *domain.User, tickets []domain.Ticket) []domain.Ticket {
	return filter(tickets, func(t *domain.Ticket) bool {
		return TicketVisible(actor, t)
	})
}

func isActiveAdmin(actor *domain.User) bool {
	return actor != nil && actor.IsAdmin() && !actor.IsBlocked()
}

// filter keeps items in order and always returns a non-nil slice.
func filter[T any](items []T, keep func(*T) bool) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
