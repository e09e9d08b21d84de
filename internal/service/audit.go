package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/clouddoctor/server/internal/store"
)

// ErrExternalIDMismatch means the caller presented an external id that is
// not the one on their account.
var ErrExternalIDMismatch = errors.New("external_id_mismatch")

// ErrAuditUnavailable means no audit backend is configured.
var ErrAuditUnavailable = errors.New("audit_backend_unavailable")

// AuditService proxies audit-run requests to the external scanning backend.
// The user's external id is the only thing the two systems share; we verify
// the caller presented their own before forwarding.
type AuditService struct {
	Store   store.Store
	BaseURL string
	Client  *http.Client
}

func NewAuditService(st store.Store, baseURL string) *AuditService {
	return &AuditService{
		Store:   st,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// AuditResult relays the backend's status code and body verbatim.
type AuditResult struct {
	StatusCode int
	Body       []byte
}

// StartAudit asks the scanning backend to begin an audit run for the user.
func (s *AuditService) StartAudit(
	ctx context.Context,
	userID int64,
	externalID string,
) (AuditResult, error) {
	if s.BaseURL == "" {
		return AuditResult{}, ErrAuditUnavailable
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return AuditResult{}, err
	}
	if user.ExternalID != externalID {
		return AuditResult{}, ErrExternalIDMismatch
	}

	payload, err := json.Marshal(map[string]string{"uuid": externalID})
	if err != nil {
		return AuditResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.BaseURL+"/api/audit/start", bytes.NewReader(payload))
	if err != nil {
		return AuditResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return AuditResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AuditResult{}, err
	}

	return AuditResult{StatusCode: resp.StatusCode, Body: body}, nil
}
