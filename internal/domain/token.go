package domain

import "time"

// TokenPair is what login and refresh return: the short-lived access token
// and the longer-lived refresh token, both compact signed strings.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Role         Role
}

// RefreshToken models the stored refresh token record. The row, not the
// signed string, is authoritative: deleting it revokes the token instantly
// regardless of the embedded expiry claim.
type RefreshToken struct {
	ID     int64
	UserID int64
	// TokenHash is the deterministic fingerprint (base64url SHA-256) of the
	// signed token string.
	TokenHash string
	// DeviceFingerprint captured at issuance; every later use must present
	// the same one.
	DeviceFingerprint string
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// Identity is the authenticated principal attached to a request after the
// access token checks out.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// Authority returns the Spring-style authority string consumed by the
// frontend ("ROLE_USER" / "ROLE_ADMIN").
func (id Identity) Authority() string {
	return "ROLE_" + string(id.Role)
}
