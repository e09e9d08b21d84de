package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// AuthHandler serves the /api/auth endpoints: login, logout, refresh,
// register and the signup availability checks.
type AuthHandler struct {
	Sessions     *service.SessionService
	Registration *service.RegistrationService
	Cookies      CookiePolicy
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Metrics      *Metrics
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Role string `json:"role"`
	// Tokens are cookie-borne in production; the fields are only populated
	// for localhost origins where cross-port cookies don't stick.
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HandleLogin godoc
//
//	@Summary	Log in with username and password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		loginRequest	true	"Credentials"
//	@Success	200		{object}	tokenResponse
//	@Failure	401		{object}	map[string]string	"error"
//	@Router		/api/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	pair, err := h.Sessions.Login(ctx, req.Username, req.Password, deviceFingerprint(r))
	if err != nil {
		h.Metrics.LoginFailure()
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, service.ErrAccountDisabled):
			httpx.WriteError(w, http.StatusUnauthorized, "account_disabled")
		default:
			slogx.FromContext(ctx).Error("login failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}
	h.Metrics.LoginSuccess()

	httpx.NoCache(w)
	h.Cookies.setSessionCookies(w, r, pair, h.AccessTTL, h.RefreshTTL)

	resp := tokenResponse{Role: string(pair.Role)}
	if localOrigin(r) {
		resp.AccessToken = pair.AccessToken
		resp.RefreshToken = pair.RefreshToken
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRefresh godoc
//
//	@Summary	Exchange a refresh token for a new token pair
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	tokenResponse
//	@Failure	401	{object}	gateError
//	@Router		/api/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := extractRefreshToken(r)
	if token == "" {
		writeGateError(w, "missing_token")
		return
	}

	pair, err := h.Sessions.Refresh(ctx, token, deviceFingerprint(r))
	if err != nil {
		h.Metrics.RefreshFailure()
		switch {
		case errors.Is(err, service.ErrRefreshNotFound),
			errors.Is(err, service.ErrRefreshExpired),
			errors.Is(err, service.ErrDeviceMismatch):
			// One outward shape for all refresh rejections; the distinctions
			// stay in the logs.
			slogx.FromContext(ctx).Info("refresh rejected", "reason", err)
			writeGateError(w, "invalid_refresh_token")
		case errors.Is(err, service.ErrAccountDisabled):
			writeGateError(w, "account_disabled")
		default:
			slogx.FromContext(ctx).Error("refresh failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}
	h.Metrics.RefreshSuccess()

	httpx.NoCache(w)
	h.Cookies.setSessionCookies(w, r, pair, h.AccessTTL, h.RefreshTTL)

	resp := tokenResponse{Role: string(pair.Role)}
	if localOrigin(r) {
		resp.AccessToken = pair.AccessToken
		resp.RefreshToken = pair.RefreshToken
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout godoc
//
//	@Summary	End the current session
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Best effort: logging out with no or a dead token still succeeds.
	if token := extractRefreshToken(r); token != "" {
		if err := h.Sessions.Logout(ctx, token); err != nil {
			slogx.FromContext(ctx).Error("logout failed", "error", err)
		}
	}

	httpx.NoCache(w)
	h.Cookies.clearSessionCookies(w, r)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Company  string `json:"company"`
}

// HandleRegister godoc
//
//	@Summary	Create a new account
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		registerRequest	true	"New account"
//	@Success	201		{object}	map[string]string
//	@Failure	409		{object}	map[string]string	"error"
//	@Router		/api/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	user, err := h.Registration.Register(ctx, service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Company:  req.Company,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			httpx.WriteError(w, http.StatusConflict, "username_taken")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken")
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		default:
			slogx.FromContext(ctx).Error("registration failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"username": user.Username})
}

// HandleCheckUsername godoc
//
//	@Summary	Check whether a username is free
//	@Tags		Auth
//	@Produce	json
//	@Param		username	query		string	true	"Username to check"
//	@Success	200			{object}	map[string]bool
//	@Router		/api/auth/check-username [get]
func (h *AuthHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	h.handleAvailability(w, r, "username", h.Registration.UsernameAvailable)
}

// HandleCheckEmail godoc
//
//	@Summary	Check whether an email is free
//	@Tags		Auth
//	@Produce	json
//	@Param		email	query		string	true	"Email to check"
//	@Success	200		{object}	map[string]bool
//	@Router		/api/auth/check-email [get]
func (h *AuthHandler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	h.handleAvailability(w, r, "email", h.Registration.EmailAvailable)
}

func (h *AuthHandler) handleAvailability(
	w http.ResponseWriter,
	r *http.Request,
	param string,
	check func(ctx context.Context, value string) (bool, error),
) {
	value := r.URL.Query().Get(param)
	if value == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_"+param)
		return
	}

	available, err := check(r.Context(), value)
	if err != nil {
		slogx.FromContext(r.Context()).Error("availability check failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// extractRefreshToken mirrors extractAccessToken for the refresh cookie,
// with the Bearer header as the API-client fallback.
func extractRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
