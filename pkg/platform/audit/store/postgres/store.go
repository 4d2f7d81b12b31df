// Package postgres persists audit events in an append-only table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	id "factgate/pkg/domain"
	audit "factgate/pkg/platform/audit"
)

// Store implements audit.Store on PostgreSQL. The table carries no update or
// delete path; records are immutable once written.
type Store struct {
	db *sql.DB
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	category := audit.AuditEvent(event.Action).Category()

	var userID any
	if !event.UserID.IsNil() {
		userID = event.UserID.String()
	}

	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, user_id, tenant_id,
			resource, operation, action, decision, success,
			reason, ref_id, request_id, ip_address, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), string(category), event.Timestamp, userID,
		event.TenantID.String(), event.Resource, event.Operation, event.Action,
		event.Decision, event.Success, event.Reason, event.RefID,
		event.RequestID, event.IPAddress, metadata,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT occurred_at, tenant_id, resource, operation, action,
		       decision, success, reason, ref_id, request_id, ip_address, metadata
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			tenantID string
			metadata []byte
		)
		event.UserID = userID
		if err := rows.Scan(
			&event.Timestamp, &tenantID, &event.Resource, &event.Operation,
			&event.Action, &event.Decision, &event.Success, &event.Reason,
			&event.RefID, &event.RequestID, &event.IPAddress, &metadata,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.TenantID = id.TenantID(tenantID)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
