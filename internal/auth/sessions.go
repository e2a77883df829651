package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/himalai/expense-service/internal/models"
)

const sessionKeyPrefix = "sessions:"

// SessionStore keeps the server-side record for every issued token,
// keyed by JWT ID. Records expire with the token; revoking one logs the
// session out early.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	key := sessionKeyPrefix + session.TokenID
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session for a token ID, or (nil, nil) when the record
// is missing or expired.
func (s *SessionStore) Get(ctx context.Context, tokenID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+tokenID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Revoke(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+tokenID).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
