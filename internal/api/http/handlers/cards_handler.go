package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/api/dto"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/service"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// CardsHandler serves card listings and purchases.
type CardsHandler struct {
	cards *service.CardService
}

// NewCardsHandler constructs handler.
func NewCardsHandler(cardService *service.CardService) *CardsHandler {
	return &CardsHandler{cards: cardService}
}

// List GET /api/cards.
func (h *CardsHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.cards.List(c.UserContext(), actor, listQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page, dto.NewCardResponse))
}

// Get GET /api/cards/:id.
func (h *CardsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	card, err := h.cards.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(card)})
}

// Create POST /api/cards.
func (h *CardsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	card, err := h.cards.Create(c.UserContext(), actor, service.CardInput{
		CardNumber: req.CardNumber,
		Expiration: req.Expiration,
		CVV:        req.CVV,
		Price:      req.Price,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCardResponse(card)})
}

// CreateBulk POST /api/cards/bulk.
func (h *CardsHandler) CreateBulk(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BulkCardsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Text == "" {
		return apperrors.NewFieldError("text", "at least one card line required")
	}
	result, err := h.cards.CreateBulk(c.UserContext(), actor, req.Text)
	if err != nil {
		return err
	}
	created := make([]dto.CardResponse, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, dto.NewCardResponse(&result.Created[i]))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"created":  created,
		"rejected": result.Rejected,
	}})
}

// Update PATCH /api/cards/:id.
func (h *CardsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	card, err := h.cards.Update(c.UserContext(), actor, c.Params("id"), service.CardUpdate{
		CardNumber: req.CardNumber,
		Expiration: req.Expiration,
		CVV:        req.CVV,
		Price:      req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(card)})
}

// Block POST /api/cards/:id/block.
func (h *CardsHandler) Block(c *fiber.Ctx) error {
	return h.transition(c, h.cards.Block)
}

// Unblock POST /api/cards/:id/unblock.
func (h *CardsHandler) Unblock(c *fiber.Ctx) error {
	return h.transition(c, h.cards.Unblock)
}

func (h *CardsHandler) transition(c *fiber.Ctx, apply func(ctx context.Context, actor *domain.User, id string) (*domain.Card, error)) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	card, err := apply(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCardResponse(card)})
}

// Purchase POST /api/cards/:id/purchase.
func (h *CardsHandler) Purchase(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	order, err := h.cards.Purchase(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrderResponse(order)})
}
