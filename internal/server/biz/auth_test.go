package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopdocs/docdesk/internal/pkg/xcache"
	"github.com/loopdocs/docdesk/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), store.Config{
		Dialect: "sqlite",
		DSN:     "file::memory:?_pragma=foreign_keys(1)",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newAuthService(t *testing.T, s *store.Store) *AuthService {
	t.Helper()

	auth, err := NewAuthService(AuthServiceParams{
		Store: s,
		Config: AuthConfig{
			SecretKey: "746573742d7365637265742d6b6579",
			TokenTTL:  time.Hour,
			SessionCache: xcache.Config{
				Mode: xcache.ModeMemory,
			},
		},
	})
	require.NoError(t, err)

	return auth
}

func seedAccount(t *testing.T, s *store.Store, email, password string, active bool) int64 {
	t.Helper()

	hashed, err := HashPassword(password)
	require.NoError(t, err)

	id, err := s.CreateUser(context.Background(), &store.User{
		Email:    email,
		FullName: "Test User",
		Password: hashed,
		Active:   active,
	})
	require.NoError(t, err)

	return id
}

func TestHashAndVerifyPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)

	require.NoError(t, VerifyPassword(hashed, "s3cret"))
	assert.Error(t, VerifyPassword(hashed, "wrong"))
}

func TestAuthenticateUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	auth := newAuthService(t, s)

	id := seedAccount(t, s, "ana@example.com", "s3cret", true)
	seedAccount(t, s, "off@example.com", "s3cret", false)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := auth.AuthenticateUser(ctx, "ana@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.AuthenticateUser(ctx, "ana@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := auth.AuthenticateUser(ctx, "ghost@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("disabled account", func(t *testing.T) {
		_, err := auth.AuthenticateUser(ctx, "off@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})
}

func TestJWTRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	auth := newAuthService(t, s)

	id := seedAccount(t, s, "ana@example.com", "s3cret", true)

	user, err := s.GetUser(ctx, id)
	require.NoError(t, err)

	token, err := auth.GenerateJWTToken(ctx, user)
	require.NoError(t, err)

	got, err := auth.AuthenticateJWTToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	t.Run("tampered token", func(t *testing.T) {
		_, err := auth.AuthenticateJWTToken(ctx, token+"x")
		assert.ErrorIs(t, err, ErrInvalidJWT)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, s.DeleteUser(ctx, id))

		_, err := auth.AuthenticateJWTToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidJWT)
	})
}

func TestSessionCaching(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	auth := newAuthService(t, s)

	id := seedAccount(t, s, "ana@example.com", "s3cret", true)
	require.NoError(t, s.ReplaceUserPermissions(ctx, id, "ENG", []string{"SEARCH_DOCS"}))

	user, err := s.GetUser(ctx, id)
	require.NoError(t, err)

	session, err := auth.Session(ctx, user, "ENG")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEARCH_DOCS"}, session.Permissions)

	// Grants change behind the cache; the cached session is still served.
	require.NoError(t, s.ReplaceUserPermissions(ctx, id, "ENG", []string{"SEARCH_DOCS", "ADD_DOCS"}))

	cached, err := auth.Session(ctx, user, "ENG")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEARCH_DOCS"}, cached.Permissions)

	// Invalidation forces a rebuild with the new grants.
	auth.InvalidateSessions(ctx, id)

	fresh, err := auth.Session(ctx, user, "ENG")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ADD_DOCS", "SEARCH_DOCS"}, fresh.Permissions)
}
