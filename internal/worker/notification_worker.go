// Package worker runs background delivery off the request path.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/events"
	"github.com/spec-kit/cardmarket/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker queues published events and delivers them on its own
// goroutine. Events are dropped with a warning when the queue is full.
type NotificationWorker struct {
	svc    *service.NotificationService
	logger *zap.Logger
	queue  chan events.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// StartNotificationWorker subscribes to every routed event type and starts
// delivering. Stop drains the queue.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, svc *service.NotificationService, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &NotificationWorker{
		svc:    svc,
		logger: logger,
		queue:  make(chan events.Event, queueSize),
	}
	for eventType := range svc.Routes() {
		dispatcher.Subscribe(eventType, w.enqueue)
	}

	w.wg.Add(1)
	go w.run(context.WithoutCancel(ctx))
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for event := range w.queue {
		if err := w.svc.Handle(ctx, event); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
}

// Stop closes the queue and waits until queued events are delivered. It
// must be called after publishers have stopped.
func (w *NotificationWorker) Stop() {
	w.once.Do(func() { close(w.queue) })
	w.wg.Wait()
}
