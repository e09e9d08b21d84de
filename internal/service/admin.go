package service

import (
	"context"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
)

// AdminService covers administrator operations on accounts.
type AdminService struct {
	Store    store.Store
	Sessions *SessionService
}

func NewAdminService(st store.Store, sessions *SessionService) *AdminService {
	return &AdminService{Store: st, Sessions: sessions}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// SetUserActive enables or disables an account. Disabling also tears down
// the user's live session so the lockout is immediate rather than waiting
// for token expiry.
func (s *AdminService) SetUserActive(ctx context.Context, userID int64, active bool) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Store.Users().SetActive(ctx, userID, active); err != nil {
		return err
	}

	if !active {
		return s.Sessions.RevokeUser(ctx, userID, user.Username)
	}
	return nil
}

// DeleteUser removes an account outright. The live session is revoked first
// so no request can authenticate between the row disappearing and its cache
// entry expiring; refresh rows and checklist results go with the row via the
// schema's cascades.
func (s *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Sessions.RevokeUser(ctx, userID, user.Username); err != nil {
		return err
	}
	return s.Store.Users().DeleteUser(ctx, userID)
}
