package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"factgate/internal/auth/models"
	id "factgate/pkg/domain"
	"factgate/pkg/platform/sentinel"
)

const keyPrefix = "factgate:session:"

// RedisStore keeps sessions in Redis with a key TTL matching the session
// expiry. The sweep still walks the keyspace and re-checks expires_at so
// records surviving through clock skew are removed and counted.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return keyPrefix + sessionID.String()
}

func ttlUntil(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		// Already expired; keep the record one second so the sweep can
		// observe and count it rather than silently losing it.
		return time.Second
	}
	return ttl
}

// Create writes the session with SETNX semantics: a duplicate ID is a
// conflict, never an overwrite.
func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, ttlUntil(session.ExpiresAt, session.CreatedAt)).Result()
	if err != nil {
		return fmt.Errorf("create session: %w: %w", err, sentinel.ErrUnavailable)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w: %w", err, sentinel.ErrUnavailable)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Touch(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	session.LastActivity = now
	session.Status = models.SessionStatusActive
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("touch session: %w: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	removed, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w: %w", err, sentinel.ErrUnavailable)
	}
	if removed == 0 {
		return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // TTL beat us to it
		}
		if err != nil {
			return deleted, fmt.Errorf("sweep session: %w: %w", err, sentinel.ErrUnavailable)
		}
		var session models.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		if session.IsExpired(now) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return deleted, fmt.Errorf("sweep session: %w: %w", err, sentinel.ErrUnavailable)
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("sweep scan: %w: %w", err, sentinel.ErrUnavailable)
	}
	return deleted, nil
}

func (s *RedisStore) HasActiveForUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, now time.Time) (bool, error) {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("scan session: %w: %w", err, sentinel.ErrUnavailable)
		}
		var session models.Session
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		if session.TenantID == tenantID && session.UserID == userID && !session.IsExpired(now) {
			return true, nil
		}
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("scan session: %w: %w", err, sentinel.ErrUnavailable)
	}
	return false, nil
}
