package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/mail-service/internal/domain"
)

// TokenManager signs and validates session tokens for cookie-only sessions.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims describes JWT payload.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a token for the session.
func (tm *TokenManager) GenerateToken(sess *domain.Session) (string, error) {
	claims := &Claims{
		UserID:   sess.UserID,
		Username: sess.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   strconv.FormatInt(sess.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// CookieSessionStore keeps the whole session in a signed cookie.
type CookieSessionStore struct {
	tokens *TokenManager
	now    func() time.Time
}

// NewCookieSessionStore wraps a TokenManager as a SessionStore.
func NewCookieSessionStore(tokens *TokenManager) *CookieSessionStore {
	return &CookieSessionStore{tokens: tokens, now: time.Now}
}

func (s *CookieSessionStore) Create(_ context.Context, userID int64, username string) (string, *domain.Session, error) {
	now := s.now().Truncate(time.Second)
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokens.ttl),
	}
	token, err := s.tokens.GenerateToken(sess)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

func (s *CookieSessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil || claims.UserID <= 0 {
		return nil, ErrSessionNotFound
	}
	sess := &domain.Session{
		ID:       claims.ID,
		UserID:   claims.UserID,
		Username: claims.Username,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Delete is a no-op; the session dies with the cookie.
func (s *CookieSessionStore) Delete(context.Context, string) error {
	return nil
}
