// Package cache holds the authoritative access-token store. A user's access
// token is only valid while it is the token recorded here under their
// username; issuing a new one overwrites the old, which is what keeps a user
// down to a single live session.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: not found")

// TokenCache maps a username to their one live access token. Implementations
// must expire entries on their own after the stored TTL.
type TokenCache interface {
	// Store records token as the user's current access token, replacing any
	// previous entry, and schedules expiry after ttl.
	Store(ctx context.Context, username, token string, ttl time.Duration) error

	// Lookup returns the user's current access token, or ErrNotFound if the
	// entry is missing or has expired.
	Lookup(ctx context.Context, username string) (string, error)

	// Remove drops the user's entry. Removing a missing entry is not an error.
	Remove(ctx context.Context, username string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
