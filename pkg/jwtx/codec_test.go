package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec("")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestSignParseRoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	now := time.Now()
	in := NewAccessClaims("alice", "USER", 42, "dev1", time.Minute, now)

	raw, err := codec.Sign(in)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(raw, ".")))

	out, err := codec.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "alice", out.Subject)
	require.Equal(t, "USER", out.Role)
	require.Equal(t, int64(42), out.UserID)
	require.Equal(t, "dev1", out.DeviceFingerprint)
	require.Equal(t, now.Unix(), out.IssuedAt.Unix())
	require.Equal(t, now.Add(time.Minute).Unix(), out.ExpiresAt.Unix())
}

func TestRefreshClaimsCarryIssueStamp(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	now := time.Now()
	raw, err := codec.Sign(NewRefreshClaims("alice", "USER", 1, "dev1", time.Hour, now))
	require.NoError(t, err)

	out, err := codec.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, now.UnixMilli(), out.IssueStamp)
}

func TestParseFailureKinds(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := codec.Parse("not-a-token")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("empty string is malformed", func(t *testing.T) {
		_, err := codec.Parse("")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("foreign secret fails signature", func(t *testing.T) {
		other, err := NewCodec("other-secret")
		require.NoError(t, err)

		raw, err := other.Sign(NewAccessClaims("alice", "USER", 1, "dev1", time.Minute, time.Now()))
		require.NoError(t, err)

		_, err = codec.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("tampered payload fails signature", func(t *testing.T) {
		raw, err := codec.Sign(NewAccessClaims("alice", "USER", 1, "dev1", time.Minute, time.Now()))
		require.NoError(t, err)

		parts := strings.Split(raw, ".")
		parts[1] = "eyJzdWIiOiJtYWxsb3J5In0"
		_, err = codec.Parse(strings.Join(parts, "."))
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("expired token", func(t *testing.T) {
		raw, err := codec.Sign(NewAccessClaims(
			"alice", "USER", 1, "dev1", time.Minute, time.Now().Add(-2*time.Minute),
		))
		require.NoError(t, err)

		_, err = codec.Parse(raw)
		require.ErrorIs(t, err, ErrExpired)
	})
}
