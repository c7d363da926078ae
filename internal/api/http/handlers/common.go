package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/listing"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// reserved query keys that are not equality filters.
var reservedQueryKeys = map[string]struct{}{
	"q":         {},
	"sort":      {},
	"page":      {},
	"page_size": {},
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// listQuery turns ?q=&sort=&page=&page_size= plus any other keys into a
// listing query. Unknown filter keys are rejected later by listing.Apply.
func listQuery(c *fiber.Ctx) listing.Query {
	q := listing.Query{
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), listing.DefaultPageSize),
		Filters:  map[string]string{},
	}
	for key, val := range c.Queries() {
		if _, ok := reservedQueryKeys[key]; ok {
			continue
		}
		if val = strings.TrimSpace(val); val != "" {
			q.Filters[key] = val
		}
	}
	return q
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func pageResponse[T, R any](page listing.Page[T], mapItem func(*T) R) fiber.Map {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, mapItem(&page.Items[i]))
	}
	return fiber.Map{
		"data": items,
		"meta": fiber.Map{
			"total":     page.Total,
			"page":      page.Page,
			"page_size": page.PageSize,
		},
	}
}
