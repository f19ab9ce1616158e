package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mail-service/internal/domain"
)

// CookieOptions configures the session cookie attributes.
type CookieOptions struct {
	Name     string
	MaxAge   time.Duration
	Secure   bool
	SameSite string
}

// SessionManager binds SessionStore state to the HTTP session cookie.
type SessionManager struct {
	store  SessionStore
	cookie CookieOptions
}

// NewSessionManager constructs a manager.
func NewSessionManager(store SessionStore, cookie CookieOptions) *SessionManager {
	if cookie.Name == "" {
		cookie.Name = "mail_session"
	}
	if cookie.SameSite == "" {
		cookie.SameSite = fiber.CookieSameSiteLaxMode
	}
	return &SessionManager{store: store, cookie: cookie}
}

// CookieName returns the session cookie name.
func (m *SessionManager) CookieName() string {
	return m.cookie.Name
}

// Establish starts a session for user, replacing any session on the request.
// It fails when the replaced session cannot be revoked, so a stale token is
// never left valid behind a fresh cookie.
func (m *SessionManager) Establish(c *fiber.Ctx, user *domain.User) (*domain.Session, error) {
	if old := c.Cookies(m.cookie.Name); old != "" {
		if err := m.store.Delete(c.UserContext(), old); err != nil {
			return nil, fmt.Errorf("revoke previous session: %w", err)
		}
	}
	token, sess, err := m.store.Create(c.UserContext(), user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cookie.MaxAge / time.Second),
		Expires:  sess.ExpiresAt,
		Secure:   m.cookie.Secure,
		HTTPOnly: true,
		SameSite: m.cookie.SameSite,
	})
	return sess, nil
}

// Load resolves the session on the request. It returns ErrSessionNotFound
// when there is none.
func (m *SessionManager) Load(c *fiber.Ctx) (*domain.Session, error) {
	token := c.Cookies(m.cookie.Name)
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := m.store.Get(c.UserContext(), token)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Clear drops the session state and expires the cookie.
func (m *SessionManager) Clear(c *fiber.Ctx) error {
	var err error
	if token := c.Cookies(m.cookie.Name); token != "" {
		err = m.store.Delete(c.UserContext(), token)
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cookie.Secure,
		HTTPOnly: true,
		SameSite: m.cookie.SameSite,
	})
	return err
}

// IsNoSession reports whether err means the caller is simply not logged in.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
