package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens keep the revocation window small;
// the refresh TTL bounds how long a browser session can survive untouched.
// Both can be overridden per-service via configuration.
const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 2 * time.Hour
)

// Claims are the claims embedded in both access and refresh tokens. We keep
// changes additive to preserve compatibility with tokens already in the wild.
type Claims struct {
	jwt.RegisteredClaims

	/* Custom fields */

	// Role of the subject at issuance time ("USER" or "ADMIN").
	Role string `json:"role,omitempty"`

	// UserID is the numeric database id of the subject.
	UserID int64 `json:"uid,omitempty"`

	// DeviceFingerprint binds the token to the client that requested it.
	// Derived from request headers, so treat it as advisory rather than
	// cryptographic.
	DeviceFingerprint string `json:"dfp,omitempty"`

	// IssueStamp is the issuance instant in Unix milliseconds. Refresh
	// tokens carry it so two tokens minted within the same second still
	// encode to distinct strings; it plays no part in expiry checks.
	IssueStamp int64 `json:"ts,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(
	subject, role string,
	userID int64,
	deviceFingerprint string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:              role,
		UserID:            userID,
		DeviceFingerprint: deviceFingerprint,
	}
}

// NewRefreshClaims builds claims for a refresh token. The embedded expiry is
// informational only: the ledger row is what actually decides whether a
// refresh token is still live.
func NewRefreshClaims(
	subject, role string,
	userID int64,
	deviceFingerprint string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:              role,
		UserID:            userID,
		DeviceFingerprint: deviceFingerprint,
		IssueStamp:        now.UnixMilli(),
	}
}
