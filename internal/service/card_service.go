package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/access"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/listing"
	"github.com/spec-kit/cardmarket/internal/repository"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// CardService coordinates card listings and purchases.
type CardService struct {
	cards        repository.CardRepository
	orders       repository.OrderRepository
	users        repository.UserRepository
	tx           repository.TxRunner
	autoComplete bool
	events       publisher
}

// CardDependencies bundles collaborators for the card service.
type CardDependencies struct {
	Repos        repository.Set
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	AutoComplete bool
}

// CardUpdate holds the fields a seller may change. Nil fields are kept.
type CardUpdate struct {
	CardNumber *string
	Expiration *string
	CVV        *string
	Price      *decimal.Decimal
}

// BulkResult summarises a bulk import.
type BulkResult struct {
	Created  []domain.Card
	Rejected []BulkLineError
}

var cardFields = listing.Fields[domain.Card]{
	Search: []func(*domain.Card) string{
		func(c *domain.Card) string { return c.CardNumber },
		func(c *domain.Card) string { return c.Expiration },
		func(c *domain.Card) string { return c.ID },
	},
	Filter: map[string]func(*domain.Card) string{
		"status":    func(c *domain.Card) string { return string(c.Status) },
		"seller_id": func(c *domain.Card) string { return c.SellerID },
	},
	Sort: map[string]func(a, b *domain.Card) int{
		"price":      func(a, b *domain.Card) int { return a.Price.Cmp(b.Price) },
		"created_at": func(a, b *domain.Card) int { return compareTime(a.CreatedAt, b.CreatedAt) },
		"status":     func(a, b *domain.Card) int { return compareString(a.Status, b.Status) },
		"expiration": func(a, b *domain.Card) int { return compareString(a.Expiration, b.Expiration) },
	},
}

// NewCardService constructs the service.
func NewCardService(deps CardDependencies) *CardService {
	return &CardService{
		cards:        deps.Repos.Cards,
		orders:       deps.Repos.Orders,
		users:        deps.Repos.Users,
		tx:           deps.Repos.Tx,
		autoComplete: deps.AutoComplete,
		events:       newPublisher(deps.Dispatcher, deps.Logger),
	}
}

// List returns the page of cards visible to actor. Cards the actor neither
// sells nor owns come back redacted, and search runs over what the actor
// can see.
func (s *CardService) List(ctx context.Context, actor *domain.User, q listing.Query) (listing.Page[domain.Card], error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return listing.Page[domain.Card]{}, apperrors.MapError(err)
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return listing.Page[domain.Card]{}, apperrors.MapError(err)
	}

	owned := access.OwnedCardIDs(actor, orders)
	visible := access.VisibleCards(actor, cards, orders)
	for i := range visible {
		visible[i] = access.PresentCard(actor, visible[i], owned)
	}
	return listing.Apply(visible, q, cardFields)
}

// Get returns one card if actor may see it.
func (s *CardService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapNotFound(err, "card", id)
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	owned := access.OwnedCardIDs(actor, orders)
	if !access.CardVisible(actor, card, owned) {
		return nil, apperrors.NewForbidden("unauthorized")
	}
	presented := access.PresentCard(actor, *card, owned)
	return &presented, nil
}

// Create lists a new card for the acting seller.
func (s *CardService) Create(ctx context.Context, actor *domain.User, input CardInput) (*domain.Card, error) {
	if err := access.Authorize(actor, access.ActionCardCreate); err != nil {
		return nil, err
	}
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	card := &domain.Card{
		SellerID:   actor.SellerKey(),
		CardNumber: input.CardNumber,
		Expiration: input.Expiration,
		CVV:        input.CVV,
		Price:      input.Price,
		Status:     domain.CardStatusActive,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUniqueNumber(ctx, card.CardNumber, ""); err != nil {
			return err
		}
		return s.cards.Create(ctx, card)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return card, nil
}

// CreateBulk imports one card per non-empty line. Bad lines are reported
// and skipped; good lines are created.
func (s *CardService) CreateBulk(ctx context.Context, actor *domain.User, text string) (*BulkResult, error) {
	if err := access.Authorize(actor, access.ActionCardCreate); err != nil {
		return nil, err
	}
	result := &BulkResult{Created: []domain.Card{}, Rejected: []BulkLineError{}}
	seen := map[string]int{}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := i + 1
		input := parseBulkLine(line).normalize()
		reject := func(reason string) {
			result.Rejected = append(result.Rejected, BulkLineError{Line: lineNo, Input: domain.MaskCardNumber(input.CardNumber), Reason: reason})
		}

		if err := input.validate(); err != nil {
			reject(describe(err))
			continue
		}
		if first, dup := seen[input.CardNumber]; dup {
			reject("duplicate of line " + strconv.Itoa(first))
			continue
		}
		seen[input.CardNumber] = lineNo

		card, err := s.Create(ctx, actor, input)
		if err != nil {
			if apperrors.IsCode(err, "CONFLICT") || apperrors.IsCode(err, "VALIDATION_FAILED") {
				reject(describe(err))
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, *card)
	}
	if len(result.Created) == 0 && len(result.Rejected) == 0 {
		return nil, apperrors.NewFieldError("cards", "no cards provided")
	}
	return result, nil
}

// Update edits a seller's own unsold card.
func (s *CardService) Update(ctx context.Context, actor *domain.User, id string, update CardUpdate) (*domain.Card, error) {
	var card *domain.Card
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.cards.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "card", id)
		}
		if err := access.AuthorizeCard(actor, access.ActionCardEdit, card); err != nil {
			return err
		}
		if card.Status == domain.CardStatusSold {
			return apperrors.NewConflict("sold cards cannot be edited", map[string]any{"id": id})
		}

		input := CardInput{CardNumber: card.CardNumber, Expiration: card.Expiration, CVV: card.CVV, Price: card.Price}
		if update.CardNumber != nil {
			input.CardNumber = *update.CardNumber
		}
		if update.Expiration != nil {
			input.Expiration = *update.Expiration
		}
		if update.CVV != nil {
			input.CVV = *update.CVV
		}
		if update.Price != nil {
			input.Price = *update.Price
		}
		input = input.normalize()
		if err := input.validate(); err != nil {
			return err
		}
		if input.CardNumber != card.CardNumber {
			if err := s.ensureUniqueNumber(ctx, input.CardNumber, card.ID); err != nil {
				return err
			}
		}

		card.CardNumber = input.CardNumber
		card.Expiration = input.Expiration
		card.CVV = input.CVV
		card.Price = input.Price
		return s.cards.Update(ctx, card)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return card, nil
}

// Block takes an active card off the market.
func (s *CardService) Block(ctx context.Context, actor *domain.User, id string) (*domain.Card, error) {
	return s.setStatus(ctx, actor, id, domain.CardStatusBlocked)
}

// Unblock relists a blocked card.
func (s *CardService) Unblock(ctx context.Context, actor *domain.User, id string) (*domain.Card, error) {
	return s.setStatus(ctx, actor, id, domain.CardStatusActive)
}

func (s *CardService) setStatus(ctx context.Context, actor *domain.User, id string, next domain.CardStatus) (*domain.Card, error) {
	var card *domain.Card
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.cards.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "card", id)
		}
		if err := access.AuthorizeCard(actor, access.ActionCardBlock, card); err != nil {
			return err
		}
		if !card.CanTransition(next) {
			return apperrors.NewConflict("card cannot move from "+string(card.Status)+" to "+string(next), map[string]any{"id": id})
		}
		from := card.Status
		card.Status = next
		return s.cards.UpdateStatus(ctx, card.ID, from, next)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return card, nil
}

// Purchase sells an active card to the acting buyer. The buyer balance is
// debited, the card becomes sold and one order is created; with auto
// completion the order completes at once and the seller is credited.
func (s *CardService) Purchase(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		card, err := s.cards.GetByID(ctx, id)
		if err != nil {
			return apperrors.MapNotFound(err, "card", id)
		}
		if err := access.AuthorizeCard(actor, access.ActionCardPurchase, card); err != nil {
			return err
		}
		if !card.CanTransition(domain.CardStatusSold) {
			return apperrors.NewConflict("card is not available for purchase", map[string]any{"id": id, "status": string(card.Status)})
		}

		buyer, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", actor.ID)
		}
		if buyer.BuyerBalance.LessThan(card.Price) {
			return apperrors.NewValidationError("insufficient balance", map[string]any{
				"balance": buyer.BuyerBalance.StringFixed(2),
				"price":   card.Price.StringFixed(2),
			})
		}
		buyer.BuyerBalance = buyer.BuyerBalance.Sub(card.Price)
		if err := s.users.Update(ctx, buyer); err != nil {
			return err
		}

		if err := s.cards.UpdateStatus(ctx, card.ID, domain.CardStatusActive, domain.CardStatusSold); err != nil {
			return err
		}

		order = &domain.Order{
			CardID:   card.ID,
			BuyerID:  buyer.ID,
			SellerID: card.SellerID,
			Price:    card.Price,
			Status:   domain.OrderStatusPending,
		}
		if s.autoComplete {
			order.Status = domain.OrderStatusCompleted
			if err := creditSeller(ctx, s.users, card.SellerID, card.Price); err != nil {
				return err
			}
		}
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.New(events.EventCardPurchased, order.CardID, actor.ID, events.CardPurchasedPayload{
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		SellerID: order.SellerID,
		Price:    order.Price,
		Status:   order.Status,
	}))
	return order, nil
}

func (s *CardService) ensureUniqueNumber(ctx context.Context, number, selfID string) error {
	existing, err := s.cards.GetByNumber(ctx, number)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return apperrors.NewConflict("card already listed", map[string]any{"card_number": "card number already listed"})
	}
	return nil
}

// creditSeller adds amount to the seller balance of sellerID.
func creditSeller(ctx context.Context, users repository.UserRepository, sellerID string, amount decimal.Decimal) error {
	seller, err := users.GetByID(ctx, sellerID)
	if err != nil {
		return apperrors.MapNotFound(err, "seller", sellerID)
	}
	seller.CreditSeller(amount)
	return users.Update(ctx, seller)
}
