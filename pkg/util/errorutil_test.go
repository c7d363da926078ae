package util

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorMapsStoreErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"miss", ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"stale", fmt.Errorf("update: %w", ErrStale), "CONFLICT", http.StatusConflict},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "orders_card_key"}, "CONFLICT", http.StatusConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, "CONFLICT", http.StatusConflict},
		{"other pg", &pgconn.PgError{Code: "42P01"}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"domain", NewForbidden("unauthorized"), "FORBIDDEN", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestUniqueViolationNamesConstraint(t *testing.T) {
	got := ToDomainError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.Equal(t, "users_email_key", got.Details["constraint"])
	assert.Nil(t, MapError(nil))
}
