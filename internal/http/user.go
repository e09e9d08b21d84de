package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// UserHandler serves the /api/user endpoints. Every route here sits behind
// Gate.Protect, so IdentityFromContext always succeeds.
type UserHandler struct {
	Users *service.UserService
	Audit *service.AuditService
}

type userResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	JoinedAt string `json:"joinedAt"`
}

// HandleMe godoc
//
//	@Summary	Get the authenticated user's profile
//	@Tags		User
//	@Produce	json
//	@Success	200	{object}	userResponse
//	@Failure	401	{object}	gateError
//	@Router		/api/user/me [get]
//	@Security	BearerAuth
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	user, err := h.Users.Get(r.Context(), identity.UserID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to load user", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		Company:  user.Company,
		JoinedAt: user.CreatedAt.Format(time.RFC3339),
	})
}

// HandleUUID godoc
//
//	@Summary	Get the user's external correlation id
//	@Tags		User
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/user/uuid [get]
//	@Security	BearerAuth
func (h *UserHandler) HandleUUID(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	user, err := h.Users.Get(r.Context(), identity.UserID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to load user", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"uuid": user.ExternalID})
}

type updateProfileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Company  string `json:"company"`
}

// HandleUpdateProfile godoc
//
//	@Summary	Update the authenticated user's profile
//	@Tags		User
//	@Accept		json
//	@Produce	json
//	@Param		request	body		updateProfileRequest	true	"New profile fields"
//	@Success	200		{object}	userResponse
//	@Failure	409		{object}	map[string]string	"error"
//	@Router		/api/user/me [put]
//	@Security	BearerAuth
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), identity.UserID, req.FullName, req.Email, req.Company)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_email")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken")
		default:
			slogx.FromContext(r.Context()).Error("profile update failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		Company:  user.Company,
		JoinedAt: user.CreatedAt.Format(time.RFC3339),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleChangePassword godoc
//
//	@Summary	Change the account password
//	@Tags		User
//	@Accept		json
//	@Produce	json
//	@Param		request	body		changePasswordRequest	true	"Passwords"
//	@Success	200		{object}	map[string]string
//	@Failure	401		{object}	map[string]string	"error"
//	@Router		/api/user/change-password [post]
//	@Security	BearerAuth
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	err := h.Users.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		slogx.FromContext(r.Context()).Error("password change failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	// The session was revoked along with the old password.
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

type checklistRequest struct {
	Provider string          `json:"provider"`
	Service  string          `json:"service"`
	Payload  json.RawMessage `json:"payload"`
}

type checklistResponse struct {
	ID        int64           `json:"id"`
	Provider  string          `json:"provider"`
	Service   string          `json:"service"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

// HandleSaveChecklist godoc
//
//	@Summary	Save a checklist run
//	@Tags		User
//	@Accept		json
//	@Produce	json
//	@Param		request	body		checklistRequest	true	"Checklist result"
//	@Success	201		{object}	checklistResponse
//	@Router		/api/user/checklist [post]
//	@Security	BearerAuth
func (h *UserHandler) HandleSaveChecklist(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req checklistRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Provider == "" || req.Service == "" || len(req.Payload) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	result, err := h.Users.SaveChecklistResult(
		r.Context(), identity.UserID, req.Provider, req.Service, string(req.Payload))
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to save checklist", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toChecklistResponse(result))
}

// HandleListChecklists godoc
//
//	@Summary	List the user's checklist runs
//	@Tags		User
//	@Produce	json
//	@Success	200	{array}	checklistResponse
//	@Router		/api/user/checklists [get]
//	@Security	BearerAuth
func (h *UserHandler) HandleListChecklists(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	results, err := h.Users.ListChecklistResults(r.Context(), identity.UserID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list checklists", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]checklistResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toChecklistResponse(res))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteChecklist godoc
//
//	@Summary	Delete one of the user's checklist runs
//	@Tags		User
//	@Produce	json
//	@Param		id	path		int	true	"Checklist run id"
//	@Success	200	{object}	map[string]string
//	@Router		/api/user/checklists/{id} [delete]
//	@Security	BearerAuth
func (h *UserHandler) HandleDeleteChecklist(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if err := h.Users.DeleteChecklistResult(r.Context(), identity.UserID, id); err != nil {
		slogx.FromContext(r.Context()).Error("failed to delete checklist", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func toChecklistResponse(c domain.ChecklistResult) checklistResponse {
	return checklistResponse{
		ID:        c.ID,
		Provider:  c.Provider,
		Service:   c.Service,
		Payload:   json.RawMessage(c.Payload),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

type auditStartRequest struct {
	UUID string `json:"uuid"`
}

// HandleStartAudit godoc
//
//	@Summary	Start an audit run via the scanning backend
//	@Tags		User
//	@Accept		json
//	@Produce	json
//	@Param		request	body	auditStartRequest	true	"External id"
//	@Success	200		"Relayed backend response"
//	@Failure	403		{object}	map[string]string	"error"
//	@Router		/api/user/audit/start [post]
//	@Security	BearerAuth
func (h *UserHandler) HandleStartAudit(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req auditStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	result, err := h.Audit.StartAudit(r.Context(), identity.UserID, req.UUID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExternalIDMismatch):
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
		case errors.Is(err, service.ErrAuditUnavailable):
			httpx.WriteError(w, http.StatusServiceUnavailable, "audit_unavailable")
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found")
		default:
			slogx.FromContext(r.Context()).Error("audit proxy failed", "error", err)
			httpx.WriteError(w, http.StatusBadGateway, "audit_backend_error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(result.Body)
}
