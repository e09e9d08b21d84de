package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/pkg/cryptox"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/jwtx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// Gate authenticates requests on their way into the protected handlers. The
// access token is read from the accessToken cookie first, then from the
// Authorization header, matching how the frontend and API clients send it.
type Gate struct {
	Sessions *service.SessionService
}

type identityCtxKey struct{}

// IdentityFromContext returns the authenticated identity, if the request
// passed an auth middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}

// gateError is the JSON body every auth failure gets. logout is always true:
// whatever token the client holds is dead and it should clear local state.
type gateError struct {
	Error  string `json:"error"`
	Logout bool   `json:"logout"`
}

func writeGateError(w http.ResponseWriter, reason string) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(gateError{Error: reason, Logout: true})
}

// extractAccessToken pulls the token from the cookie, falling back to a
// Bearer header.
func extractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// deviceFingerprint derives the advisory device binding from the request.
// The User-Agent is what the issuing side recorded, so tokens presented
// through a different client string stand out.
func deviceFingerprint(r *http.Request) string {
	return cryptox.FingerprintToken(r.UserAgent())
}

// Protect requires a live session. Failures are terminal 401s with a logout
// directive; nothing falls through.
func (g *Gate) Protect() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAccessToken(r)
			if token == "" {
				writeGateError(w, "missing_token")
				return
			}

			identity, err := g.Sessions.Validate(r.Context(), token, deviceFingerprint(r))
			if err != nil {
				reason, known := gateReason(err)
				if !known {
					// A store or cache outage is not the client's fault; never
					// answer it with a logout directive.
					slogx.FromContext(r.Context()).Error("session validation failed", "error", err)
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
					return
				}
				writeGateError(w, reason)
				return
			}

			ctx := context.WithValue(r.Context(), identityCtxKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional authenticates when it can but lets anonymous or invalid-token
// requests straight through. Used on the public-read content endpoints so a
// logged-in page and a logged-out page hit the same routes.
func (g *Gate) Optional() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractAccessToken(r); token != "" {
				identity, err := g.Sessions.Validate(r.Context(), token, deviceFingerprint(r))
				switch {
				case err == nil:
					r = r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, identity))
				default:
					if _, known := gateReason(err); !known {
						slogx.FromContext(r.Context()).Error("session validation failed", "error", err)
						httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
						return
					}
					// A dead or garbage token just means anonymous.
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthority gates a route on the identity's authority string, e.g.
// "ROLE_ADMIN". Must run after Protect.
func RequireAuthority(authority string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeGateError(w, "missing_token")
				return
			}
			if identity.Authority() != authority {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// gateReason flattens the known validation failures into the small vocabulary
// the frontend switches on. Anything outside it (a store or cache failure) is
// not an auth failure and reports false, so callers surface a server error
// instead of telling the client to log out.
func gateReason(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrStale):
		return "stale_token", true
	case errors.Is(err, service.ErrAccountDisabled):
		return "account_disabled", true
	case errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrExpired):
		return "invalid_token", true
	default:
		return "", false
	}
}
