package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clouddoctor/server/internal/cache"
	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// SessionService drives the login/validate/refresh/logout lifecycle. The
// access-token cache is the authority on which access token (if any) is live
// for a user; the refresh ledger is the authority on refresh tokens. A fresh
// login displaces both, which is what limits a user to one live session.
type SessionService struct {
	Store     store.Store
	Cache     cache.TokenCache
	Codec     *jwtx.Codec
	Ledger    *LedgerService
	AccessTTL time.Duration

	now func() time.Time
}

func NewSessionService(
	st store.Store,
	tc cache.TokenCache,
	codec *jwtx.Codec,
	ledger *LedgerService,
	accessTTL time.Duration,
) *SessionService {
	if accessTTL <= 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	return &SessionService{
		Store:     st,
		Cache:     tc,
		Codec:     codec,
		Ledger:    ledger,
		AccessTTL: accessTTL,
		now:       time.Now,
	}
}

// Login verifies the credentials and mints a fresh token pair. An unknown
// username and a wrong password both come back as ErrInvalidCredentials.
func (s *SessionService) Login(
	ctx context.Context,
	username, password, deviceFingerprint string,
) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login password verification failed", slog.String("username", username))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	return s.issuePair(ctx, user, deviceFingerprint)
}

// Validate checks an access token end to end: signature and expiry via the
// codec, then cache authority (the presented token must string-equal the
// cached one), then an is_active recheck so disabling a user cuts off their
// in-flight session. A device-fingerprint mismatch is logged but not
// enforced here; refresh is where the binding is hard.
func (s *SessionService) Validate(
	ctx context.Context,
	accessToken, deviceFingerprint string,
) (domain.Identity, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Parse(accessToken)
	if err != nil {
		return domain.Identity{}, err
	}

	cached, err := s.Cache.Lookup(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return domain.Identity{}, ErrStale
		}
		return domain.Identity{}, err
	}
	if cached != accessToken {
		return domain.Identity{}, ErrStale
	}

	if claims.DeviceFingerprint != "" && claims.DeviceFingerprint != deviceFingerprint {
		l.Warn("access token used from a different device",
			slog.String("username", claims.Subject))
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrStale
		}
		return domain.Identity{}, err
	}
	if !user.IsActive {
		return domain.Identity{}, ErrAccountDisabled
	}

	return domain.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

// Refresh exchanges a valid refresh token for a brand new pair. Refresh
// tokens rotate: the presented one is consumed and a new one issued, so a
// replayed old token fails its ledger lookup.
func (s *SessionService) Refresh(
	ctx context.Context,
	refreshToken, deviceFingerprint string,
) (domain.TokenPair, error) {
	user, err := s.Ledger.Validate(ctx, refreshToken, deviceFingerprint)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if !user.IsActive {
		// Disabled accounts lose their standing refresh rows too.
		_ = s.Ledger.Revoke(ctx, user.ID)
		return domain.TokenPair{}, ErrAccountDisabled
	}

	return s.issuePair(ctx, user, deviceFingerprint)
}

// Logout tears down the session named by the refresh token: cache entry
// removed, ledger rows revoked. It is deliberately forgiving; a token that
// no longer parses or matches nothing still "logs out" without error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.Codec.Parse(refreshToken)
	if err != nil {
		// Can't tell whose session this was; nothing to tear down.
		return nil
	}

	if err := s.Cache.Remove(ctx, claims.Subject); err != nil {
		slogx.FromContext(ctx).Error("failed to remove cached access token",
			slog.String("username", claims.Subject), slog.Any("error", err))
	}
	if claims.UserID != 0 {
		if err := s.Ledger.Revoke(ctx, claims.UserID); err != nil {
			slogx.FromContext(ctx).Error("failed to revoke refresh tokens",
				slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		}
	}
	return nil
}

// RevokeUser force-ends a user's session (admin deactivation, password
// change). Cache and ledger are both cleared.
func (s *SessionService) RevokeUser(ctx context.Context, userID int64, username string) error {
	if err := s.Cache.Remove(ctx, username); err != nil {
		return err
	}
	return s.Ledger.Revoke(ctx, userID)
}

func (s *SessionService) issuePair(
	ctx context.Context,
	user domain.User,
	deviceFingerprint string,
) (domain.TokenPair, error) {
	now := s.now()

	accessClaims := jwtx.NewAccessClaims(
		user.Username,
		string(user.Role),
		user.ID,
		deviceFingerprint,
		s.AccessTTL,
		now,
	)
	accessToken, err := s.Codec.Sign(accessClaims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refreshToken, err := s.Ledger.Issue(ctx, user, deviceFingerprint)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// Cache write last: if it fails the user simply isn't logged in, rather
	// than logged in with no refresh path.
	if err := s.Cache.Store(ctx, user.Username, accessToken, s.AccessTTL); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         user.Role,
	}, nil
}
