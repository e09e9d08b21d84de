package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrEmptySecret = errors.New("jwtx: signing secret is empty")
)

// Codec signs and parses compact HS256 tokens. It is a pure function of the
// secret: no state, safe for concurrent use. The secret is process-wide
// configuration loaded once at startup.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given symmetric secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign encodes and signs the claims, returning the compact token string.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Parse verifies the signature and expiry, returning the embedded claims.
// Failure kinds:
//   - ErrMalformed when the token is structurally invalid
//   - ErrInvalidSig when the signature does not verify (or the alg differs)
//   - ErrExpired when now is past the exp claim (no clock-skew leeway)
func (c *Codec) Parse(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSig
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSig):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
