package service

import (
	"cmp"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/events"
)

// publisher fans events out after a mutation has committed. Listener
// failures are logged and never fail the mutation.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return publisher{dispatcher: dispatcher, logger: logger}
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event listener failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject", event.Subject),
			zap.Error(err))
	}
}

func utcNow() time.Time { return time.Now().UTC() }

func compareTime(a, b time.Time) int { return a.Compare(b) }

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareString[S ~string](a, b S) int { return cmp.Compare(a, b) }
