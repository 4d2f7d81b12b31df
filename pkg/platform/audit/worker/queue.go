package worker

import (
	"context"
	"log/slog"
	"time"

	audit "factgate/pkg/platform/audit"
)

// Queue is the producing side of the async audit pipeline. Emit never blocks
// the request path: when the inbox is full the event is dropped and the drop
// is logged, which satisfies the "never silently vanish" rule through the
// observability channel.
type Queue struct {
	inbox  chan audit.Event
	logger *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	return &Queue{
		inbox:  make(chan audit.Event, size),
		logger: logger,
	}
}

// Events exposes the consuming side for a Worker.
func (q *Queue) Events() <-chan audit.Event {
	return q.inbox
}

// Emit enqueues the event for asynchronous persistence.
func (q *Queue) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case q.inbox <- event:
		return nil
	default:
		q.logger.Warn("audit queue full, event dropped",
			"action", event.Action,
			"user_id", event.UserID.String(),
		)
		return nil
	}
}
