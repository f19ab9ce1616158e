package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mail-service/internal/domain"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// SessionGuard rejects requests without an authenticated session.
type SessionGuard struct {
	sessions *SessionManager
}

// NewSessionGuard constructs middleware.
func NewSessionGuard(sessions *SessionManager) *SessionGuard {
	return &SessionGuard{sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (g *SessionGuard) Handle(c *fiber.Ctx) error {
	sess, err := g.sessions.Load(c)
	if err != nil {
		if IsNoSession(err) {
			return apperrors.NewUnauthenticated("Authentication required")
		}
		return apperrors.NewInternalError(err)
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

// SessionFromContext retrieves the session stored by the guard.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	sess, ok := val.(*domain.Session)
	return sess, ok && sess != nil
}

// RequireSession returns the acting session or an Unauthenticated error.
func RequireSession(c *fiber.Ctx) (*domain.Session, error) {
	sess, ok := SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthenticated("Authentication required")
	}
	return sess, nil
}
