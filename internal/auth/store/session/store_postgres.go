package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists sessions in PostgreSQL for deployments that need
// sessions to survive process restarts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() { s.pool.Close() }

// Create inserts the session in a single statement; the primary-key
// constraint provides the create-if-absent atomicity.
func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, tenant_id, user_id, user_email, permissions,
			created_at, expires_at, ip_address, user_agent, device,
			last_activity, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, query,
		uuid.UUID(session.ID), session.TenantID.String(), uuid.UUID(session.UserID),
		session.UserEmail, session.Permissions, session.CreatedAt,
		session.ExpiresAt, session.IPAddress, session.UserAgent,
		session.Device, session.LastActivity, string(session.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `
		SELECT tenant_id, user_id, user_email, permissions, created_at,
		       expires_at, ip_address, user_agent, device, last_activity, status
		FROM sessions WHERE session_id = $1`

	var (
		session  models.Session
		tenantID string
		userID   uuid.UUID
		status   string
	)
	session.ID = sessionID
	err := s.pool.QueryRow(ctx, query, uuid.UUID(sessionID)).Scan(
		&tenantID, &userID, &session.UserEmail, &session.Permissions,
		&session.CreatedAt, &session.ExpiresAt, &session.IPAddress,
		&session.UserAgent, &session.Device, &session.LastActivity, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	session.TenantID = id.TenantID(tenantID)
	session.UserID = id.UserID(userID)
	session.Status = models.SessionStatus(status)
	return &session, nil
}

func (s *PostgresStore) Touch(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_activity = $2, status = $3 WHERE session_id = $1`,
		uuid.UUID(sessionID), now, string(models.SessionStatusActive),
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, uuid.UUID(sessionID))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) HasActiveForUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, now time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE tenant_id = $1 AND user_id = $2 AND expires_at >= $3
		)`,
		tenantID.String(), uuid.UUID(userID), now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active sessions: %w", err)
	}
	return exists, nil
}
