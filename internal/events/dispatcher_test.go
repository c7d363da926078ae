package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventCardPurchased, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.Subject)
		return boom
	})
	d.Subscribe(EventCardPurchased, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.Subject)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "ticket")
		return nil
	})

	err := d.Publish(context.Background(), New(EventCardPurchased, "c1", "3", nil))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:c1", "second:c1"}, calls)
}

func TestNewStampsEvent(t *testing.T) {
	e := New(EventTicketReplied, "t1", "1", TicketRepliedPayload{Sender: "admin"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "t1", e.Subject)
}
