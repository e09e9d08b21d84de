package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/service"
	"github.com/clouddoctor/server/internal/store"
	"github.com/clouddoctor/server/pkg/httpx"
	"github.com/clouddoctor/server/pkg/slogx"
)

// ContentHandler serves the public-read guideline catalogue.
type ContentHandler struct {
	Content *service.ContentService
}

type guidelineResponse struct {
	ID        int64  `json:"id"`
	Provider  string `json:"provider"`
	Service   string `json:"service"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	UpdatedAt string `json:"updatedAt"`
}

func toGuidelineResponse(g domain.Guideline) guidelineResponse {
	return guidelineResponse{
		ID:        g.ID,
		Provider:  g.Provider,
		Service:   g.Service,
		Title:     g.Title,
		Content:   g.Content,
		UpdatedAt: g.UpdatedAt.Format(time.RFC3339),
	}
}

// HandleListGuidelines godoc
//
//	@Summary	List guidelines, optionally filtered by provider and service
//	@Tags		Content
//	@Produce	json
//	@Param		provider	query	string	false	"Provider filter"
//	@Param		service		query	string	false	"Service filter"
//	@Success	200			{array}	guidelineResponse
//	@Router		/api/guidelines [get]
func (h *ContentHandler) HandleListGuidelines(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	svc := r.URL.Query().Get("service")

	guidelines, err := h.Content.ListGuidelines(r.Context(), provider, svc)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list guidelines", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]guidelineResponse, 0, len(guidelines))
	for _, g := range guidelines {
		out = append(out, toGuidelineResponse(g))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGetGuideline godoc
//
//	@Summary	Get a single guideline
//	@Tags		Content
//	@Produce	json
//	@Param		id	path		int	true	"Guideline id"
//	@Success	200	{object}	guidelineResponse
//	@Failure	404	{object}	map[string]string	"error"
//	@Router		/api/guidelines/{id} [get]
func (h *ContentHandler) HandleGetGuideline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	guideline, err := h.Content.GetGuideline(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to load guideline", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGuidelineResponse(guideline))
}

// HandleListProviders godoc
//
//	@Summary	List cloud providers
//	@Tags		Content
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/api/providers [get]
func (h *ContentHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Content.ListProviders(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list providers", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if providers == nil {
		providers = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, providers)
}

type serviceResponse struct {
	ID       int64  `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// HandleListServices godoc
//
//	@Summary	List services under a provider
//	@Tags		Content
//	@Produce	json
//	@Param		provider	query	string	true	"Provider"
//	@Success	200			{array}	serviceResponse
//	@Router		/api/services [get]
func (h *ContentHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_provider")
		return
	}

	services, err := h.Content.ListServices(r.Context(), provider)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list services", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, serviceResponse{ID: s.ID, Provider: s.Provider, Name: s.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
