package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSessionStoreRoundTrip(t *testing.T) {
	store := NewCookieSessionStore(NewTokenManager("secret", time.Hour))
	ctx := context.Background()

	token, sess, err := store.Create(ctx, 7, "carol")
	require.NoError(t, err)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "carol", got.Username)
	assert.True(t, got.ExpiresAt.After(time.Now()))
	assert.NoError(t, store.Delete(ctx, token))
}

func TestCookieSessionStoreRejectsForeignSignature(t *testing.T) {
	issuer := NewCookieSessionStore(NewTokenManager("one", time.Hour))
	verifier := NewCookieSessionStore(NewTokenManager("two", time.Hour))

	token, _, err := issuer.Create(context.Background(), 7, "carol")
	require.NoError(t, err)

	_, err = verifier.Get(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = verifier.Get(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCookieSessionStoreRejectsExpiredToken(t *testing.T) {
	store := NewCookieSessionStore(NewTokenManager("secret", time.Minute))
	store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := store.Create(context.Background(), 7, "carol")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
