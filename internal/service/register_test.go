package service

import (
	"context"
	"strings"
	"testing"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active USER with external id", func(t *testing.T) {
		h := newSessionHarness(t)
		reg := NewRegistrationService(h.store)

		user, err := reg.Register(ctx, RegisterParams{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "hunter2-but-long",
			FullName: "Alice Example",
			Company:  "Example Pty Ltd",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, user.Role)
		require.True(t, user.IsActive)
		require.NotZero(t, user.ID)

		// "<unix-ms>-<uuid>"
		parts := strings.SplitN(user.ExternalID, "-", 2)
		require.Len(t, parts, 2)
		require.Regexp(t, `^\d{13}$`, parts[0])
		require.Len(t, parts[1], 36)

		// And the new account can log in.
		_, err = h.sessions.Login(ctx, "alice", "hunter2-but-long", "device-a")
		require.NoError(t, err)
	})

	t.Run("rejects duplicate username and email", func(t *testing.T) {
		h := newSessionHarness(t)
		reg := NewRegistrationService(h.store)

		_, err := reg.Register(ctx, RegisterParams{
			Username: "alice", Email: "alice@example.com", Password: "hunter2-but-long",
		})
		require.NoError(t, err)

		_, err = reg.Register(ctx, RegisterParams{
			Username: "alice", Email: "other@example.com", Password: "hunter2-but-long",
		})
		require.ErrorIs(t, err, ErrUsernameTaken)

		_, err = reg.Register(ctx, RegisterParams{
			Username: "bob", Email: "alice@example.com", Password: "hunter2-but-long",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		h := newSessionHarness(t)
		reg := NewRegistrationService(h.store)

		_, err := reg.Register(ctx, RegisterParams{
			Username: "alice", Email: "not-an-email", Password: "hunter2-but-long",
		})
		require.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestAvailabilityChecks(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	reg := NewRegistrationService(h.store)
	h.createUser(t, "alice", "hunter2-but-long", true)

	free, err := reg.UsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	require.False(t, free)

	free, err = reg.UsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	require.True(t, free)

	free, err = reg.EmailAvailable(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, free)

	free, err = reg.EmailAvailable(ctx, "bob@example.com")
	require.NoError(t, err)
	require.True(t, free)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "hunter2-but-long", true)
	h.createUser(t, "bob", "hunter2-but-long", true)
	users := NewUserService(h.store, h.sessions)

	t.Run("updates display fields", func(t *testing.T) {
		updated, err := users.UpdateProfile(ctx, user.ID, "Alice B. Example", "alice@new.example.com", "New Co")
		require.NoError(t, err)
		require.Equal(t, "Alice B. Example", updated.FullName)
		require.Equal(t, "alice@new.example.com", updated.Email)
		require.Equal(t, "New Co", updated.Company)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := users.UpdateProfile(ctx, user.ID, "Alice", "not-an-email", "")
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects another user's email", func(t *testing.T) {
		_, err := users.UpdateProfile(ctx, user.ID, "Alice", "bob@example.com", "")
		require.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newSessionHarness(t)
	user := h.createUser(t, "alice", "old-password-123", true)
	users := NewUserService(h.store, h.sessions)

	pair, err := h.sessions.Login(ctx, "alice", "old-password-123", "device-a")
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := users.ChangePassword(ctx, user.ID, "wrong-password", "new-password-123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success revokes the live session", func(t *testing.T) {
		require.NoError(t, users.ChangePassword(ctx, user.ID, "old-password-123", "new-password-123"))

		_, err := h.sessions.Validate(ctx, pair.AccessToken, "device-a")
		require.ErrorIs(t, err, ErrStale)
		_, err = h.sessions.Refresh(ctx, pair.RefreshToken, "device-a")
		require.ErrorIs(t, err, ErrRefreshNotFound)

		_, err = h.sessions.Login(ctx, "alice", "old-password-123", "device-a")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = h.sessions.Login(ctx, "alice", "new-password-123", "device-a")
		require.NoError(t, err)
	})
}
