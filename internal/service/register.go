package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/google/uuid"
)

// RegistrationService creates accounts and answers the signup form's
// availability probes.
type RegistrationService struct {
	Store store.Store

	now func() time.Time
}

func NewRegistrationService(st store.Store) *RegistrationService {
	return &RegistrationService{Store: st, now: time.Now}
}

// RegisterParams are the fields collected by the signup form.
type RegisterParams struct {
	Username string
	Email    string
	Password string
	FullName string
	Company  string
}

// Register creates a new USER account. Usernames and emails are unique;
// which one collided is reported so the form can highlight the right field.
func (s *RegistrationService) Register(
	ctx context.Context,
	p RegisterParams,
) (domain.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)

	if p.Username == "" || p.Password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !strings.Contains(p.Email, "@") {
		return domain.User{}, ErrInvalidEmail
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, p.Username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.Store.Users().GetUserByEmail(ctx, p.Email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		FullName:     p.FullName,
		Role:         domain.RoleUser,
		IsActive:     true,
		ExternalID:   s.newExternalID(),
		Company:      p.Company,
	}

	created, err := s.Store.Users().CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent signup.
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}
	return created, nil
}

// UsernameAvailable reports whether a username is free to take.
func (s *RegistrationService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// EmailAvailable reports whether an email is free to take.
func (s *RegistrationService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	_, err := s.Store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// newExternalID mints the correlation id shared with the audit backend:
// issuance milliseconds, then a UUID, so ids sort by creation time while
// staying unguessable.
func (s *RegistrationService) newExternalID() string {
	return fmt.Sprintf("%d-%s", s.now().UnixMilli(), uuid.NewString())
}
