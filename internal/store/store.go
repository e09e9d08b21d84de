package store

import (
	"context"
	"errors"

	"github.com/clouddoctor/server/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and forces transactional work through Tx so nested transactions
// can't happen by accident.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Guidelines() Guidelines
	Services() Services
	ChecklistResults() ChecklistResults

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by numeric id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used for email availability checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and returns it with the assigned id.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateUser mutates full_name, email and company and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID int64, newHash string) error

	// SetActive flips is_active and bumps updated_at.
	SetActive(ctx context.Context, userID int64, active bool) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// DeleteUser cascades to refresh_tokens and checklist_results (per schema).
	DeleteUser(ctx context.Context, userID int64) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint hash.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshTokenByHash removes a single token record.
	DeleteRefreshTokenByHash(ctx context.Context, hash string) error

	// DeleteAllUserRefreshTokens clears every token a user holds. Called
	// before inserting a fresh one so a user never has more than one live
	// refresh token.
	DeleteAllUserRefreshTokens(ctx context.Context, userID int64) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type Guidelines interface {
	// GetGuidelineByID fetches a single guideline.
	GetGuidelineByID(ctx context.Context, id int64) (domain.Guideline, error)

	// ListGuidelines returns guidelines filtered by provider and/or service.
	// Empty filter values match everything.
	ListGuidelines(ctx context.Context, provider, service string) ([]domain.Guideline, error)

	// CreateGuideline inserts a new guideline and returns it with the assigned id.
	CreateGuideline(ctx context.Context, g domain.Guideline) (domain.Guideline, error)

	// UpdateGuideline mutates title and content and bumps updated_at.
	UpdateGuideline(ctx context.Context, g domain.Guideline) error

	// DeleteGuideline removes a guideline.
	DeleteGuideline(ctx context.Context, id int64) error
}

type Services interface {
	// ListProviders returns the distinct providers that have services.
	ListProviders(ctx context.Context) ([]string, error)

	// ListServicesByProvider returns the services under a provider.
	ListServicesByProvider(ctx context.Context, provider string) ([]domain.ServiceEntry, error)

	// CreateService inserts a new service entry and returns it with the assigned id.
	CreateService(ctx context.Context, s domain.ServiceEntry) (domain.ServiceEntry, error)

	// DeleteService removes a service entry.
	DeleteService(ctx context.Context, id int64) error
}

type ChecklistResults interface {
	// CreateChecklistResult stores a submitted checklist run.
	CreateChecklistResult(ctx context.Context, r domain.ChecklistResult) (domain.ChecklistResult, error)

	// ListChecklistResultsByUser returns a user's runs, newest first.
	ListChecklistResultsByUser(ctx context.Context, userID int64) ([]domain.ChecklistResult, error)

	// DeleteChecklistResult removes a run, scoped to its owner.
	DeleteChecklistResult(ctx context.Context, userID, id int64) error
}
