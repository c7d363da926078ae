package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/cardmarket/internal/domain"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

func TestRoleGrants(t *testing.T) {
	admin := newActor("1", domain.RoleAdmin)
	seller := newActor("2", domain.RoleSeller)
	buyer := newActor("3", domain.RoleBuyer)

	cases := []struct {
		action Action
		admin  bool
		seller bool
		buyer  bool
	}{
		{ActionCardCreate, false, true, false},
		{ActionCardPurchase, false, false, true},
		{ActionUserManage, true, false, false},
		{ActionWithdrawalRequest, false, true, false},
		{ActionWithdrawalDecide, true, false, false},
		{ActionSellerCommission, true, false, false},
		{ActionDepositRequest, false, false, true},
		{ActionTicketCreate, true, true, true},
		{ActionTicketModerate, true, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.admin, Can(admin, tc.action), "admin %s", tc.action)
		assert.Equal(t, tc.seller, Can(seller, tc.action), "seller %s", tc.action)
		assert.Equal(t, tc.buyer, Can(buyer, tc.action), "buyer %s", tc.action)
	}

	assert.False(t, Can(nil, ActionTicketCreate))
	blocked := newActor("5", domain.RoleAdmin)
	blocked.Status = domain.UserStatusBlocked
	assert.False(t, Can(blocked, ActionUserManage))
}

func TestAuthorizeCardOwnership(t *testing.T) {
	seller := newActor("2", domain.RoleSeller)
	other := newActor("4", domain.RoleSeller)
	admin := newActor("1", domain.RoleAdmin)
	card := &domain.Card{ID: "c1", SellerID: "2", Status: domain.CardStatusActive}

	assert.NoError(t, AuthorizeCard(seller, ActionCardEdit, card))
	assert.NoError(t, AuthorizeCard(seller, ActionCardBlock, card))

	err := AuthorizeCard(other, ActionCardEdit, card)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Error(t, AuthorizeCard(other, ActionCardBlock, card))

	assert.NoError(t, AuthorizeCard(admin, ActionCardBlock, card))
	assert.Error(t, AuthorizeCard(admin, ActionCardEdit, card))

	sellerBuyer := newActor("2", domain.RoleSeller, domain.RoleBuyer)
	assert.Error(t, AuthorizeCard(sellerBuyer, ActionCardPurchase, card))
	assert.NoError(t, AuthorizeCard(newActor("3", domain.RoleBuyer), ActionCardPurchase, card))
}

func TestAuthorizeTicket(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", OwnerID: "3"}

	assert.NoError(t, AuthorizeTicket(newActor("3", domain.RoleBuyer), ActionTicketReply, ticket))
	assert.NoError(t, AuthorizeTicket(newActor("1", domain.RoleAdmin), ActionTicketReply, ticket))
	assert.Error(t, AuthorizeTicket(newActor("2", domain.RoleSeller), ActionTicketReply, ticket))
	assert.Error(t, AuthorizeTicket(newActor("3", domain.RoleBuyer), ActionTicketModerate, ticket))
}
