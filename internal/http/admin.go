package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// AdminHandler serves /api/admin. Routes are chained behind Gate.Protect and
// RequireAuthority("ROLE_ADMIN").
type AdminHandler struct {
	Admin   *service.AdminService
	Content *service.ContentService
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type guidelineRequest struct {
	Provider string `json:"provider"`
	Service  string `json:"service"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// HandleCreateGuideline godoc
//
//	@Summary	Create a guideline
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		request	body		guidelineRequest	true	"Guideline"
//	@Success	201		{object}	guidelineResponse
//	@Router		/api/admin/guidelines [post]
//	@Security	BearerAuth
func (h *AdminHandler) HandleCreateGuideline(w http.ResponseWriter, r *http.Request) {
	var req guidelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Provider == "" || req.Service == "" || req.Title == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	created, err := h.Content.CreateGuideline(r.Context(), domain.Guideline{
		Provider: req.Provider,
		Service:  req.Service,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to create guideline", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toGuidelineResponse(created))
}

// HandleUpdateGuideline godoc
//
//	@Summary	Update a guideline's title and content
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"Guideline id"
//	@Param		request	body		guidelineRequest	true	"New values"
//	@Success	200		{object}	map[string]string
//	@Failure	404		{object}	map[string]string	"error"
//	@Router		/api/admin/guidelines/{id} [put]
//	@Security	BearerAuth
func (h *AdminHandler) HandleUpdateGuideline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req guidelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	err = h.Content.UpdateGuideline(r.Context(), domain.Guideline{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to update guideline", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleDeleteGuideline godoc
//
//	@Summary	Delete a guideline
//	@Tags		Admin
//	@Produce	json
//	@Param		id	path		int	true	"Guideline id"
//	@Success	200	{object}	map[string]string
//	@Router		/api/admin/guidelines/{id} [delete]
//	@Security	BearerAuth
func (h *AdminHandler) HandleDeleteGuideline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if err := h.Content.DeleteGuideline(r.Context(), id); err != nil {
		slogx.FromContext(r.Context()).Error("failed to delete guideline", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type serviceRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// HandleCreateService godoc
//
//	@Summary	Add a service under a provider
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		request	body		serviceRequest	true	"Service"
//	@Success	201		{object}	serviceResponse
//	@Failure	409		{object}	map[string]string	"error"
//	@Router		/api/admin/services [post]
//	@Security	BearerAuth
func (h *AdminHandler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Provider == "" || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	created, err := h.Content.CreateService(r.Context(), domain.ServiceEntry{
		Provider: req.Provider,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteError(w, http.StatusConflict, "already_exists")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to create service", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, serviceResponse{
		ID: created.ID, Provider: created.Provider, Name: created.Name,
	})
}

// HandleDeleteService godoc
//
//	@Summary	Remove a service entry
//	@Tags		Admin
//	@Produce	json
//	@Param		id	path		int	true	"Service id"
//	@Success	200	{object}	map[string]string
//	@Router		/api/admin/services/{id} [delete]
//	@Security	BearerAuth
func (h *AdminHandler) HandleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if err := h.Content.DeleteService(r.Context(), id); err != nil {
		slogx.FromContext(r.Context()).Error("failed to delete service", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type adminUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
	Company  string `json:"company"`
	JoinedAt string `json:"joinedAt"`
}

// HandleListUsers godoc
//
//	@Summary	List all accounts
//	@Tags		Admin
//	@Produce	json
//	@Success	200	{array}	adminUserResponse
//	@Router		/api/admin/users [get]
//	@Security	BearerAuth
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListUsers(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list users", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResponse{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			FullName: u.FullName,
			Role:     string(u.Role),
			IsActive: u.IsActive,
			Company:  u.Company,
			JoinedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteUser godoc
//
//	@Summary		Delete an account
//	@Description	Ends the user's live session and removes the account with its refresh tokens and checklist runs.
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path		int	true	"User id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string	"error"
//	@Router			/api/admin/users/{id} [delete]
//	@Security		BearerAuth
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	if err := h.Admin.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to delete user", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// HandleSetUserActive godoc
//
//	@Summary	Enable or disable an account
//	@Description	Disabling an account also ends the user's live session immediately.
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"User id"
//	@Param		request	body		setActiveRequest	true	"Desired state"
//	@Success	200		{object}	map[string]string
//	@Failure	404		{object}	map[string]string	"error"
//	@Router		/api/admin/users/{id}/active [post]
//	@Security	BearerAuth
func (h *AdminHandler) HandleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := h.Admin.SetUserActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to set user active", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
