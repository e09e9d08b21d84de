package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so login failures are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountDisabled means the user exists but is_active is off.
	ErrAccountDisabled = errors.New("account_disabled")

	// ErrStale means the access token parsed fine but is no longer the one
	// recorded in the cache for that user (logged out, superseded by a newer
	// login, or the cache entry expired).
	ErrStale = errors.New("stale_token")

	// ErrRefreshNotFound means no ledger row matches the presented refresh
	// token.
	ErrRefreshNotFound = errors.New("refresh_token_not_found")

	// ErrRefreshExpired means the ledger row exists but its expiry has
	// passed. The row is deleted on detection.
	ErrRefreshExpired = errors.New("refresh_token_expired")

	// ErrDeviceMismatch means the refresh token was presented from a device
	// other than the one it was issued to. The row is deleted on detection.
	ErrDeviceMismatch = errors.New("refresh_token_device_mismatch")

	ErrUsernameTaken = errors.New("username_taken")
	ErrEmailTaken    = errors.New("email_taken")
	ErrInvalidEmail  = errors.New("invalid_email")
)
