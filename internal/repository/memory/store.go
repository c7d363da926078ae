// Package memory provides process-local implementations of the repository
// interfaces. It backs the default run mode and the service tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
)

// Store holds every collection behind one lock. An optional latency is
// applied to each call to mimic a remote backend.
type Store struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	latency time.Duration

	users       map[string]domain.User
	cards       map[string]domain.Card
	orders      map[string]domain.Order
	withdrawals map[string]domain.Withdrawal
	deposits    map[string]domain.Deposit
	tickets     map[string]domain.Ticket
	resets      map[string]domain.PasswordResetToken
}

// NewStore builds an empty store.
func NewStore(latency time.Duration) *Store {
	return &Store{
		latency:     latency,
		users:       map[string]domain.User{},
		cards:       map[string]domain.Card{},
		orders:      map[string]domain.Order{},
		withdrawals: map[string]domain.Withdrawal{},
		deposits:    map[string]domain.Deposit{},
		tickets:     map[string]domain.Ticket{},
		resets:      map[string]domain.PasswordResetToken{},
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTx serialises fn against other transactions and writers. When fn
// fails every collection is restored to its state before the call.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

var _ repository.TxRunner = (*Store)(nil)

// wait applies the configured latency, returning early on cancellation.
func (s *Store) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// read runs fn under the read lock after the latency.
func (s *Store) read(ctx context.Context, fn func() error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// write runs fn under the write lock. Writes outside a transaction still
// wait for any running transaction so a rollback cannot discard them.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

type snapshot struct {
	users       map[string]domain.User
	cards       map[string]domain.Card
	orders      map[string]domain.Order
	withdrawals map[string]domain.Withdrawal
	deposits    map[string]domain.Deposit
	tickets     map[string]domain.Ticket
	resets      map[string]domain.PasswordResetToken
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := make(map[string]domain.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		tickets[id] = cloneTicket(t)
	}
	return snapshot{
		users:       maps.Clone(s.users),
		cards:       maps.Clone(s.cards),
		orders:      maps.Clone(s.orders),
		withdrawals: maps.Clone(s.withdrawals),
		deposits:    maps.Clone(s.deposits),
		tickets:     tickets,
		resets:      maps.Clone(s.resets),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.cards = snap.cards
	s.orders = snap.orders
	s.withdrawals = snap.withdrawals
	s.deposits = snap.deposits
	s.tickets = snap.tickets
	s.resets = snap.resets
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Messages = slices.Clone(t.Messages)
	return t
}

// sortedValues returns the map values ordered by cmp.
func sortedValues[T any](m map[string]T, cmp func(a, b T) int) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, cmp)
	return out
}
