package service

import (
	"context"
	"testing"
	"time"

	"github.com/clouddoctor/server/internal/cache"
	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/internal/store/drivers/sqlite"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type sessionHarness struct {
	store    store.Store
	cache    *cache.MemoryCache
	codec    *jwtx.Codec
	ledger   *LedgerService
	sessions *SessionService

	// clock backs the service-side now() so ledger expiry can be driven
	// forward in tests.
	clock time.Time
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec("session-test-secret")
	require.NoError(t, err)

	h := &sessionHarness{
		store: st,
		cache: cache.NewMemoryCache(),
		codec: codec,
		clock: time.Now(),
	}
	h.ledger = NewLedgerService(st, codec, time.Hour)
	h.ledger.now = func() time.Time { return h.clock }
	h.sessions = NewSessionService(st, h.cache, codec, h.ledger, 5*time.Minute)
	h.sessions.now = func() time.Time { return h.clock }
	return h
}

func (h *sessionHarness) createUser(t *testing.T, username, password string, active bool) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	user, err := h.store.Users().CreateUser(context.Background(), domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		FullName:     username,
		Role:         domain.RoleUser,
		IsActive:     active,
		ExternalID:   "1700000000000-" + username,
	})
	require.NoError(t, err)
	return user
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a working token pair", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, domain.RoleUser, pair.Role)

		identity, err := h.sessions.Validate(ctx, pair.AccessToken, "device-a")
		require.NoError(t, err)
		require.Equal(t, "alice", identity.Username)
		require.Equal(t, domain.RoleUser, identity.Role)
		require.Equal(t, "ROLE_USER", identity.Authority())
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		_, errUnknown := h.sessions.Login(ctx, "nobody", "whatever-pass", "device-a")
		_, errWrong := h.sessions.Login(ctx, "alice", "wrong-password", "device-a")

		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "bob", "hunter2-but-long", false)

		_, err := h.sessions.Login(ctx, "bob", "hunter2-but-long", "device-a")
		require.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("second login displaces the first session", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		first, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		// Move the clock so the second pair signs to different strings.
		h.clock = h.clock.Add(time.Second)

		second, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-b")
		require.NoError(t, err)
		require.NotEqual(t, first.AccessToken, second.AccessToken)

		// First access token still parses but the cache has moved on.
		_, err = h.sessions.Validate(ctx, first.AccessToken, "device-a")
		require.ErrorIs(t, err, ErrStale)

		// First refresh token's ledger row was cleared by the second issue.
		_, err = h.sessions.Refresh(ctx, first.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)

		// The new session is unaffected.
		_, err = h.sessions.Validate(ctx, second.AccessToken, "device-b")
		require.NoError(t, err)
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		h := newSessionHarness(t)
		_, err := h.sessions.Validate(ctx, "not-a-jwt", "device-a")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		foreign, err := jwtx.NewCodec("some-other-secret")
		require.NoError(t, err)
		forged, err := foreign.Sign(jwtx.NewAccessClaims("alice", "USER", 1, "device-a", time.Minute, time.Now()))
		require.NoError(t, err)

		_, err = h.sessions.Validate(ctx, forged, "device-a")
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("well-formed token with no cache entry is stale", func(t *testing.T) {
		h := newSessionHarness(t)
		user := h.createUser(t, "alice", "hunter2-but-long", true)

		// Signed with the right secret but never cached, e.g. minted before
		// a restart wiped the in-memory cache.
		orphan, err := h.codec.Sign(jwtx.NewAccessClaims(
			user.Username, string(user.Role), user.ID, "device-a", time.Minute, time.Now()))
		require.NoError(t, err)

		_, err = h.sessions.Validate(ctx, orphan, "device-a")
		require.ErrorIs(t, err, ErrStale)
	})

	t.Run("expired access token recovers via refresh", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		// Issue the pair ten minutes in the past: the access token's 5m
		// deadline has passed while the refresh row (1h) is still live.
		h.clock = time.Now().Add(-10 * time.Minute)
		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		_, err = h.sessions.Validate(ctx, pair.AccessToken, "device-a")
		require.ErrorIs(t, err, jwtx.ErrExpired)

		h.clock = time.Now()
		fresh, err := h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.NoError(t, err)

		identity, err := h.sessions.Validate(ctx, fresh.AccessToken, "device-a")
		require.NoError(t, err)
		require.Equal(t, "alice", identity.Username)
	})

	t.Run("device mismatch is tolerated for access tokens", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		identity, err := h.sessions.Validate(ctx, pair.AccessToken, "device-b")
		require.NoError(t, err)
		require.Equal(t, "alice", identity.Username)
	})

	t.Run("disabling a user cuts off their live session", func(t *testing.T) {
		h := newSessionHarness(t)
		user := h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		require.NoError(t, h.store.Users().SetActive(ctx, user.ID, false))

		_, err = h.sessions.Validate(ctx, pair.AccessToken, "device-a")
		require.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation consumes the presented token", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		first, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		h.clock = h.clock.Add(time.Second)

		second, err := h.sessions.Refresh(ctx, first.RefreshToken, "device-a")
		require.NoError(t, err)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)

		// Replaying the consumed token fails.
		_, err = h.sessions.Refresh(ctx, first.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)

		// The rotated token works.
		h.clock = h.clock.Add(time.Second)
		_, err = h.sessions.Refresh(ctx, second.RefreshToken, "device-a")
		require.NoError(t, err)
	})

	t.Run("refresh displaces the previous access token", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		first, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		h.clock = h.clock.Add(time.Second)

		second, err := h.sessions.Refresh(ctx, first.RefreshToken, "device-a")
		require.NoError(t, err)

		_, err = h.sessions.Validate(ctx, first.AccessToken, "device-a")
		require.ErrorIs(t, err, ErrStale)

		_, err = h.sessions.Validate(ctx, second.AccessToken, "device-a")
		require.NoError(t, err)
	})

	t.Run("device mismatch burns the token", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-b")
		require.ErrorIs(t, err, ErrDeviceMismatch)

		// Even the legitimate device can't use it afterwards: the row is gone.
		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)
	})

	t.Run("ledger expiry wins over claim expiry", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		// Past the ledger TTL while the signed claim would still be honoured
		// by a pure JWT check is exactly the case the ledger exists for.
		h.clock = h.clock.Add(2 * time.Hour)

		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshExpired)

		// Expiry deletes the row, so a retry cannot resurrect it.
		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)
	})

	t.Run("disabled account revokes on refresh", func(t *testing.T) {
		h := newSessionHarness(t)
		user := h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		require.NoError(t, h.store.Users().SetActive(ctx, user.ID, false))

		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrAccountDisabled)

		// The standing row was revoked as a side effect.
		require.NoError(t, h.store.Users().SetActive(ctx, user.ID, true))
		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("ends the session", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		require.NoError(t, h.sessions.Logout(ctx, pair.RefreshToken))

		_, err = h.sessions.Validate(ctx, pair.AccessToken, "device-a")
		require.ErrorIs(t, err, ErrStale)

		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		h := newSessionHarness(t)
		h.createUser(t, "alice", "hunter2-but-long", true)

		pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)

		require.NoError(t, h.sessions.Logout(ctx, pair.RefreshToken))
		require.NoError(t, h.sessions.Logout(ctx, pair.RefreshToken))
	})

	t.Run("garbage token logs out without error", func(t *testing.T) {
		h := newSessionHarness(t)
		require.NoError(t, h.sessions.Logout(ctx, "definitely-not-a-jwt"))
	})
}

func TestRevokeUser(t *testing.T) {
	ctx := context.Background()

	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "hunter2-but-long", true)

	pair, err := h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
	require.NoError(t, err)

	require.NoError(t, h.sessions.RevokeUser(ctx, user.ID, user.Username))

	_, err = h.sessions.Validate(ctx, pair.AccessToken, "device-a")
	require.ErrorIs(t, err, ErrStale)
	_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
	require.ErrorIs(t, err, ErrRefreshNotFound)
}
