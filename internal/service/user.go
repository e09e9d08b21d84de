package service

import (
	"context"
	"errors"
	"strings"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/cryptox"
)

// UserService covers the account-holder's own operations.
type UserService struct {
	Store    store.Store
	Sessions *SessionService
}

func NewUserService(st store.Store, sessions *SessionService) *UserService {
	return &UserService{Store: st, Sessions: sessions}
}

// Get returns the user's own record.
func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateProfile changes the user's display fields. Changing the email keeps
// the same uniqueness rule as registration.
func (s *UserService) UpdateProfile(
	ctx context.Context,
	userID int64,
	fullName, email, company string,
) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return domain.User{}, ErrInvalidEmail
	}

	user.FullName = fullName
	user.Email = email
	user.Company = company
	if err := s.Store.Users().UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ChangePassword swaps the password after verifying the current one, then
// revokes the user's session so every device has to log in again with the
// new password.
func (s *UserService) ChangePassword(
	ctx context.Context,
	userID int64,
	currentPassword, newPassword string,
) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}
	if newPassword == "" {
		return ErrInvalidCredentials
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	return s.Sessions.RevokeUser(ctx, userID, user.Username)
}

// SaveChecklistResult records a checklist run for the user.
func (s *UserService) SaveChecklistResult(
	ctx context.Context,
	userID int64,
	provider, service, payload string,
) (domain.ChecklistResult, error) {
	return s.Store.ChecklistResults().CreateChecklistResult(ctx, domain.ChecklistResult{
		UserID:   userID,
		Provider: provider,
		Service:  service,
		Payload:  payload,
	})
}

// ListChecklistResults returns the user's checklist history, newest first.
func (s *UserService) ListChecklistResults(
	ctx context.Context,
	userID int64,
) ([]domain.ChecklistResult, error) {
	return s.Store.ChecklistResults().ListChecklistResultsByUser(ctx, userID)
}

// DeleteChecklistResult removes one of the user's own checklist runs. The
// store query is owner-scoped, so a foreign id silently deletes nothing.
func (s *UserService) DeleteChecklistResult(ctx context.Context, userID, id int64) error {
	return s.Store.ChecklistResults().DeleteChecklistResult(ctx, userID, id)
}
