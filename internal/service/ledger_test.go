package service

import (
	"context"
	"testing"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestLedgerIssue(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "hunter2-but-long", true)

	t.Run("repeated issues leave exactly one row", func(t *testing.T) {
		var tokens []string
		for i := 0; i < 3; i++ {
			h.clock = h.clock.Add(time.Second)
			tok, err := h.ledger.Issue(ctx, user, "device-a")
			require.NoError(t, err)
			tokens = append(tokens, tok)
		}

		// Only the newest token has a row.
		for _, tok := range tokens[:len(tokens)-1] {
			_, err := h.store.RefreshTokens().GetRefreshTokenByHash(
				ctx, cryptox.FingerprintToken(tok))
			require.ErrorIs(t, err, store.ErrNotFound)
		}
		row, err := h.store.RefreshTokens().GetRefreshTokenByHash(
			ctx, cryptox.FingerprintToken(tokens[len(tokens)-1]))
		require.NoError(t, err)
		require.Equal(t, user.ID, row.UserID)
		require.Equal(t, "device-a", row.DeviceFingerprint)
	})

	t.Run("tokens minted in the same instant still differ", func(t *testing.T) {
		// IssueStamp carries milliseconds, so even a frozen clock at second
		// granularity cannot produce identical strings across distinct
		// issuance instants.
		h.clock = h.clock.Add(time.Millisecond)
		first, err := h.ledger.Issue(ctx, user, "device-a")
		require.NoError(t, err)

		h.clock = h.clock.Add(time.Millisecond)
		second, err := h.ledger.Issue(ctx, user, "device-a")
		require.NoError(t, err)

		require.NotEqual(t, first, second)
	})

	t.Run("issued token parses with refresh claims", func(t *testing.T) {
		tok, err := h.ledger.Issue(ctx, user, "device-a")
		require.NoError(t, err)

		claims, err := h.codec.Parse(tok)
		require.NoError(t, err)
		require.Equal(t, user.Username, claims.Subject)
		require.Equal(t, user.ID, claims.UserID)
		require.Equal(t, "device-a", claims.DeviceFingerprint)
		require.NotZero(t, claims.IssueStamp)
	})
}

func TestLedgerRevoke(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "hunter2-but-long", true)

	tok, err := h.ledger.Issue(ctx, user, "device-a")
	require.NoError(t, err)

	require.NoError(t, h.ledger.Revoke(ctx, user.ID))
	_, err = h.ledger.Validate(ctx, tok, "device-a")
	require.ErrorIs(t, err, ErrRefreshNotFound)

	// Revoking again is a no-op.
	require.NoError(t, h.ledger.Revoke(ctx, user.ID))
}

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "hunter2-but-long", true)

	// An already-expired row straight into the store.
	require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, rowWithExpiry(user.ID, "stale", time.Now().Add(-time.Hour))))
	require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, rowWithExpiry(user.ID, "live", time.Now().Add(time.Hour))))

	deleted, err := h.store.RefreshTokens().DeleteExpiredRefreshTokens(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken("live"))
	require.NoError(t, err)
	_, err = h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken("stale"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func rowWithExpiry(userID int64, token string, expiresAt time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: expiresAt,
	}
}
