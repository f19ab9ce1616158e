package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mail-service/internal/domain"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

type brokenStore struct{}

func (brokenStore) Create(context.Context, int64, string) (string, *domain.Session, error) {
	return "", nil, errors.New("down")
}
func (brokenStore) Get(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("down")
}
func (brokenStore) Delete(context.Context, string) error { return nil }

func newGuardedApp(t *testing.T, store SessionStore) (*fiber.App, *SessionManager) {
	t.Helper()
	sessions := NewSessionManager(store, CookieOptions{Name: "sid", MaxAge: time.Hour})
	guard := NewSessionGuard(sessions)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Post("/login", func(c *fiber.Ctx) error {
		if _, err := sessions.Establish(c, &domain.User{ID: 5, Username: "dave"}); err != nil {
			return err
		}
		return c.SendStatus(http.StatusOK)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return sessions.Clear(c)
	})
	app.Get("/private", guard.Handle, func(c *fiber.Ctx) error {
		sess, err := RequireSession(c)
		if err != nil {
			return err
		}
		return c.SendString(sess.Username)
	})
	return app, sessions
}

func sessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestSessionGuardRejectsAnonymous(t *testing.T) {
	app, _ := newGuardedApp(t, NewCookieSessionStore(NewTokenManager("k", time.Hour)))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, apperrors.CodeUnauthenticated, string(body))
}

func TestSessionGuardPassesEstablishedSession(t *testing.T) {
	app, _ := newGuardedApp(t, NewCookieSessionStore(NewTokenManager("k", time.Hour)))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp, "sid")
	assert.True(t, ck.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: ck.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "dave", string(body))
}

func TestSessionManagerClearExpiresCookie(t *testing.T) {
	app, _ := newGuardedApp(t, NewCookieSessionStore(NewTokenManager("k", time.Hour)))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ck := sessionCookie(t, resp, "sid")
	assert.Empty(t, ck.Value)
}

func TestSessionGuardStoreFailureIsInternal(t *testing.T) {
	app, _ := newGuardedApp(t, brokenStore{})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "whatever"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

type stickyStore struct {
	SessionStore
}

func (stickyStore) Delete(context.Context, string) error { return errors.New("down") }

func TestEstablishFailsWhenPreviousSessionSurvives(t *testing.T) {
	app, _ := newGuardedApp(t, stickyStore{NewCookieSessionStore(NewTokenManager("k", time.Hour))})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := sessionCookie(t, resp, "sid")

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: first.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		assert.NotEqual(t, "sid", ck.Name, "no replacement cookie may be issued")
	}
}
