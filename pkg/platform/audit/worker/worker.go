// Package worker decouples audit persistence from the request path.
package worker

import (
	"context"
	"log/slog"

	audit "factgate/pkg/platform/audit"
)

// Worker consumes audit events from a channel and fans them out to sinks.
// Sink failures are logged and swallowed: a broken sink must never become a
// request-path failure, and a healthy sink still receives the event.
type Worker struct {
	sinks  []audit.Appender
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(inbox <-chan audit.Event, logger *slog.Logger, sinks ...audit.Appender) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled. On cancellation it
// flushes whatever is already buffered in the channel before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.dispatch(ctx, event)
		}
	}
}

func (w *Worker) flush() {
	// Cancelled context must not abort persistence of buffered events.
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, event audit.Event) {
	for _, sink := range w.sinks {
		if err := sink.Append(ctx, event); err != nil {
			w.logger.Warn("audit sink append failed",
				"error", err,
				"action", event.Action,
				"user_id", event.UserID.String(),
			)
		}
	}
}
