package audit

import (
	"context"
	"time"

	id "factgate/pkg/domain"
)

// Appender is the write side of an audit sink. Publishers that only forward
// events (Kafka) implement just this.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store is the append-only persistence contract for audit events.
type Store interface {
	Appender
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
