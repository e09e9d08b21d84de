package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clouddoctor/server/internal/cache"
	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store/drivers/sqlite"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var errCacheDown = errors.New("cache: connection refused")

// downCache stands in for an unreachable redis instance.
type downCache struct{}

func (downCache) Store(ctx context.Context, username, token string, ttl time.Duration) error {
	return errCacheDown
}
func (downCache) Lookup(ctx context.Context, username string) (string, error) {
	return "", errCacheDown
}
func (downCache) Remove(ctx context.Context, username string) error { return errCacheDown }
func (downCache) Ping(ctx context.Context) error                    { return errCacheDown }
func (downCache) Close() error                                      { return nil }

func newGateHarness(t *testing.T, tc cache.TokenCache) (*Gate, *jwtx.Codec, domain.User) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec("gate-test-secret")
	require.NoError(t, err)

	hash, err := cryptox.HashPassword("hunter2-but-long")
	require.NoError(t, err)
	user, err := st.Users().CreateUser(context.Background(), domain.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		ExternalID:   "1700000000000-alice",
	})
	require.NoError(t, err)

	ledger := service.NewLedgerService(st, codec, time.Hour)
	sessions := service.NewSessionService(st, tc, codec, ledger, 5*time.Minute)
	return &Gate{Sessions: sessions}, codec, user
}

func signedAccessToken(t *testing.T, codec *jwtx.Codec, user domain.User, userAgent string) string {
	t.Helper()
	token, err := codec.Sign(jwtx.NewAccessClaims(
		user.Username, string(user.Role), user.ID,
		cryptox.FingerprintToken(userAgent), 5*time.Minute, time.Now()))
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// A cache outage must come back as a server error, not as a 401 telling every
// client to discard its session.
func TestGateCacheOutage(t *testing.T) {
	t.Run("protected route returns 500", func(t *testing.T) {
		gate, codec, user := newGateHarness(t, downCache{})
		token := signedAccessToken(t, codec, user, "test-agent")

		req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		gate.Protect()(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"internal_error"}`, rec.Body.String())
	})

	t.Run("optional route returns 500 rather than silently anonymous", func(t *testing.T) {
		gate, codec, user := newGateHarness(t, downCache{})
		token := signedAccessToken(t, codec, user, "test-agent")

		req := httptest.NewRequest(http.MethodGet, "/api/guidelines", nil)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		gate.Optional()(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("token failures still answer 401 with a logout directive", func(t *testing.T) {
		gate, _, _ := newGateHarness(t, cache.NewMemoryCache())

		req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		gate.Protect()(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"invalid_token","logout":true}`, rec.Body.String())
	})
}
