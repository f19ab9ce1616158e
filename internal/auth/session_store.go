package auth

import (
	"context"
	"errors"

	"github.com/spec-kit/mail-service/internal/domain"
)

// ErrSessionNotFound is returned for missing, invalid or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the state behind session cookies. The returned token is
// the opaque cookie value.
type SessionStore interface {
	Create(ctx context.Context, userID int64, username string) (string, *domain.Session, error)
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
