// Package access decides what an actor may see and do. Every function here
// is pure: it reads the actor and the records it is given and never touches
// a store.
package access

import (
	"net/http"

	"github.com/spec-kit/cardmarket/internal/domain"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// Action names a guarded mutation.
type Action string

const (
	ActionCardCreate        Action = "card:create"
	ActionCardEdit          Action = "card:edit"
	ActionCardBlock         Action = "card:block"
	ActionCardPurchase      Action = "card:purchase"
	ActionOrderDecide       Action = "order:decide"
	ActionUserManage        Action = "user:manage"
	ActionSellerCommission  Action = "seller:commission"
	ActionWithdrawalRequest Action = "withdrawal:request"
	ActionWithdrawalDecide  Action = "withdrawal:decide"
	ActionDepositRequest    Action = "deposit:request"
	ActionDepositDecide     Action = "deposit:decide"
	ActionTicketCreate      Action = "ticket:create"
	ActionTicketReply       Action = "ticket:reply"
	ActionTicketModerate    Action = "ticket:moderate"
)

var (
	admin  = domain.NewRoleSet(domain.RoleAdmin)
	seller = domain.NewRoleSet(domain.RoleSeller)
	buyer  = domain.NewRoleSet(domain.RoleBuyer)
	anyone = domain.NewRoleSet(domain.RoleAdmin, domain.RoleSeller, domain.RoleBuyer)
)

// grants maps each action to the roles that unlock it. Ownership rules are
// layered on top by the Authorize* helpers.
var grants = map[Action]domain.RoleSet{
	ActionCardCreate:        seller,
	ActionCardEdit:          seller,
	ActionCardBlock:         admin | seller,
	ActionCardPurchase:      buyer,
	ActionOrderDecide:       admin,
	ActionUserManage:        admin,
	ActionSellerCommission:  admin,
	ActionWithdrawalRequest: seller,
	ActionWithdrawalDecide:  admin,
	ActionDepositRequest:    buyer,
	ActionDepositDecide:     admin,
	ActionTicketCreate:      anyone,
	ActionTicketReply:       anyone,
	ActionTicketModerate:    admin,
}

// Can reports whether the actor's roles unlock action. Blocked actors can
// do nothing.
func Can(actor *domain.User, action Action) bool {
	if actor == nil || actor.IsBlocked() {
		return false
	}
	return actor.Roles.HasAny(grants[action])
}

// Authorize returns a Forbidden error unless Can(actor, action).
func Authorize(actor *domain.User, action Action) error {
	if !Can(actor, action) {
		return denied(action)
	}
	return nil
}

// AuthorizeCard applies the role check plus card ownership: sellers only
// touch their own listings, admins may block any card, and nobody buys
// their own card.
func AuthorizeCard(actor *domain.User, action Action, card *domain.Card) error {
	if err := Authorize(actor, action); err != nil {
		return err
	}
	switch action {
	case ActionCardEdit:
		if !ownsCard(actor, card) {
			return denied(action)
		}
	case ActionCardBlock:
		if !actor.IsAdmin() && !ownsCard(actor, card) {
			return denied(action)
		}
	case ActionCardPurchase:
		if ownsCard(actor, card) {
			return apperrors.NewForbidden("cannot purchase own card")
		}
	}
	return nil
}

// AuthorizeTicket allows replies from the owner or an admin and moderation
// from admins only.
func AuthorizeTicket(actor *domain.User, action Action, ticket *domain.Ticket) error {
	if err := Authorize(actor, action); err != nil {
		return err
	}
	if action == ActionTicketReply && !actor.IsAdmin() && ticket.OwnerID != actor.ID {
		return denied(action)
	}
	return nil
}

func ownsCard(actor *domain.User, card *domain.Card) bool {
	key := actor.SellerKey()
	return key != "" && card != nil && card.SellerID == key
}

func denied(action Action) error {
	return apperrors.NewDomainError("FORBIDDEN", "unauthorized", http.StatusForbidden, map[string]any{"action": string(action)})
}
