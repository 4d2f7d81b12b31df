// Package usage tracks per-tenant consumption counters for reporting.
package usage

import (
	"context"
	"sync"
	"time"

	"factgate/internal/tenant/models"
	id "factgate/pkg/domain"
)

type monthKey struct {
	tenantID id.TenantID
	month    string
}

type dayKey struct {
	tenantID id.TenantID
	day      string
}

// InMemory accumulates usage counters with calendar bucketing: document
// counts reset monthly, query counts daily, storage bytes accumulate
// indefinitely. Stale buckets are retained; Snapshot only reads the current
// ones, so old buckets cost memory but never skew a report.
type InMemory struct {
	mu        sync.RWMutex
	documents map[monthKey]int64
	queries   map[dayKey]int64
	storage   map[id.TenantID]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		documents: make(map[monthKey]int64),
		queries:   make(map[dayKey]int64),
		storage:   make(map[id.TenantID]int64),
	}
}

// RecordDocument counts one stored document of the given size into the
// current month's bucket.
func (s *InMemory) RecordDocument(ctx context.Context, tenantID id.TenantID, sizeBytes int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[monthKey{tenantID, now.UTC().Format("2006-01")}]++
	s.storage[tenantID] += sizeBytes
	return nil
}

// RecordQuery counts one query into the current day's bucket.
func (s *InMemory) RecordQuery(ctx context.Context, tenantID id.TenantID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries[dayKey{tenantID, now.UTC().Format("2006-01-02")}]++
	return nil
}

// Snapshot reads the counters for the calendar buckets containing now.
func (s *InMemory) Snapshot(ctx context.Context, tenantID id.TenantID, now time.Time) (*models.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.Usage{
		TenantID:           tenantID,
		DocumentsThisMonth: s.documents[monthKey{tenantID, now.UTC().Format("2006-01")}],
		StorageBytes:       s.storage[tenantID],
		QueriesToday:       s.queries[dayKey{tenantID, now.UTC().Format("2006-01-02")}],
	}, nil
}
