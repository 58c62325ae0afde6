// Package voters issues anonymous voter sessions. A voter is identified only
// by a random token kept in an HttpOnly cookie and mirrored in Redis with a
// TTL; nothing links it to a person. The votes plugin stores a hash of the
// token, never the token itself.
package voters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// sessionKeyPrefix namespaces voter sessions in Redis.
const sessionKeyPrefix = "voter_session:"

// Session is the data stored in Redis for one anonymous voter.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// VoterService issues and validates voter sessions.
type VoterService interface {
	// Issue creates a fresh session.
	Issue(ctx context.Context) (*Session, error)

	// Validate returns the session for token, or not-found when the token
	// is malformed, unknown or expired.
	Validate(ctx context.Context, token string) (*Session, error)
}

type voterService struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewVoterService creates a VoterService backed by Redis.
func NewVoterService(rdb *redis.Client, ttl time.Duration) VoterService {
	return &voterService{redis: rdb, ttl: ttl}
}

// Issue stores a new session under a random UUID token.
func (s *voterService) Issue(ctx context.Context) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshaling voter session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Err(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing voter session in Redis: %w", err))
	}
	return session, nil
}

// Validate looks the token up in Redis.
func (s *voterService) Validate(ctx context.Context, token string) (*Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, apperror.NewNotFound("voter session not found")
	}

	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewNotFound("voter session not found")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading voter session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling voter session: %w", err))
	}
	return &session, nil
}
