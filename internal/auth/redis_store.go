package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/mail-service/internal/domain"
)

// RedisSessionStore keeps sessions server side, one key per session id.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSessionStore builds a store writing keys under prefix.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + token
}

// Create stores a new session and returns its id.
func (s *RedisSessionStore) Create(ctx context.Context, userID int64, username string) (string, *domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, err
	}
	if err := s.client.Set(ctx, s.key(sess.ID), payload, s.ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	return sess.ID, sess, nil
}

// Get loads a session by id.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrSessionNotFound
	}
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(token)).Err()
}
