package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andino-transportes/andino/internal/shared"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps bearer-token sessions in redis with a TTL. Tokens are
// opaque uuids; the payload is the serialized actor.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

type sessionPayload struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	LocationID *int64 `json:"location_id,omitempty"`
	Admin      bool   `json:"admin"`
}

// Create mints a token for the actor.
func (s *SessionStore) Create(ctx context.Context, actor shared.Actor) (string, error) {
	payload, err := json.Marshal(sessionPayload{
		UserID:     actor.UserID,
		Name:       actor.Name,
		LocationID: actor.LocationID,
		Admin:      actor.Admin,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the actor behind a token. The TTL slides on each use so
// active sessions stay alive.
func (s *SessionStore) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	raw, err := s.client.GetEx(ctx, sessionKeyPrefix+token, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Actor{}, shared.ErrUnauthenticated
		}
		return shared.Actor{}, fmt.Errorf("load session: %w", err)
	}
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return shared.Actor{}, fmt.Errorf("decode session: %w", err)
	}
	return shared.Actor{UserID: p.UserID, Name: p.Name, LocationID: p.LocationID, Admin: p.Admin}, nil
}

// Destroy revokes a token. Revoking an unknown token is not an error.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}
