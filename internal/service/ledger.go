package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// LedgerService owns the durable side of refresh tokens. Rows store a SHA-256
// fingerprint of the signed token, never the token itself, and a user never
// holds more than one row: Issue clears all prior rows in the same
// transaction that inserts the new one.
type LedgerService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	RefreshTTL time.Duration

	// now is swappable in tests.
	now func() time.Time
}

func NewLedgerService(st store.Store, codec *jwtx.Codec, refreshTTL time.Duration) *LedgerService {
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &LedgerService{
		Store:      st,
		Codec:      codec,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs a fresh refresh token for the user and records it as their only
// outstanding one. The delete and insert run in one transaction so two
// concurrent logins still leave exactly one row behind.
func (s *LedgerService) Issue(
	ctx context.Context,
	user domain.User,
	deviceFingerprint string,
) (string, error) {
	now := s.now()

	claims := jwtx.NewRefreshClaims(
		user.Username,
		string(user.Role),
		user.ID,
		deviceFingerprint,
		s.RefreshTTL,
		now,
	)
	signed, err := s.Codec.Sign(claims)
	if err != nil {
		return "", err
	}

	row := domain.RefreshToken{
		UserID:            user.ID,
		TokenHash:         cryptox.FingerprintToken(signed),
		DeviceFingerprint: deviceFingerprint,
		ExpiresAt:         now.Add(s.RefreshTTL),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteAllUserRefreshTokens(ctx, user.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, row)
	})
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Validate checks a presented refresh token against the ledger and returns
// the owning user. The ledger row's expiry is authoritative, not the claim's.
// A device mismatch or an expired row deletes the row so the token can never
// be retried.
func (s *LedgerService) Validate(
	ctx context.Context,
	token string,
	deviceFingerprint string,
) (domain.User, error) {
	l := slogx.FromContext(ctx)
	fp := cryptox.FingerprintToken(token)

	row, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrRefreshNotFound
		}
		return domain.User{}, err
	}

	if row.DeviceFingerprint != deviceFingerprint {
		l.Warn("refresh token presented from a different device",
			slog.Int64("user_id", row.UserID))
		_ = s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
		return domain.User{}, ErrDeviceMismatch
	}

	if s.now().After(row.ExpiresAt) {
		_ = s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp)
		return domain.User{}, ErrRefreshExpired
	}

	user, err := s.Store.Users().GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrRefreshNotFound
		}
		return domain.User{}, err
	}

	return user, nil
}

// Revoke clears every refresh row a user holds. Revoking a user with no rows
// is a no-op, so the call is idempotent.
func (s *LedgerService) Revoke(ctx context.Context, userID int64) error {
	return s.Store.RefreshTokens().DeleteAllUserRefreshTokens(ctx, userID)
}
