package service

import (
	"context"

	"github.com/clouddoctor/server/internal/domain"
	"github.com/clouddoctor/server/internal/store"
)

// ContentService serves the guideline catalogue: public reads plus the admin
// CRUD behind them.
type ContentService struct {
	Store store.Store
}

func NewContentService(st store.Store) *ContentService {
	return &ContentService{Store: st}
}

func (s *ContentService) GetGuideline(ctx context.Context, id int64) (domain.Guideline, error) {
	return s.Store.Guidelines().GetGuidelineByID(ctx, id)
}

func (s *ContentService) ListGuidelines(
	ctx context.Context,
	provider, service string,
) ([]domain.Guideline, error) {
	return s.Store.Guidelines().ListGuidelines(ctx, provider, service)
}

func (s *ContentService) ListProviders(ctx context.Context) ([]string, error) {
	return s.Store.Services().ListProviders(ctx)
}

func (s *ContentService) ListServices(
	ctx context.Context,
	provider string,
) ([]domain.ServiceEntry, error) {
	return s.Store.Services().ListServicesByProvider(ctx, provider)
}

func (s *ContentService) CreateGuideline(
	ctx context.Context,
	g domain.Guideline,
) (domain.Guideline, error) {
	return s.Store.Guidelines().CreateGuideline(ctx, g)
}

func (s *ContentService) UpdateGuideline(ctx context.Context, g domain.Guideline) error {
	if _, err := s.Store.Guidelines().GetGuidelineByID(ctx, g.ID); err != nil {
		return err
	}
	return s.Store.Guidelines().UpdateGuideline(ctx, g)
}

func (s *ContentService) DeleteGuideline(ctx context.Context, id int64) error {
	return s.Store.Guidelines().DeleteGuideline(ctx, id)
}

func (s *ContentService) CreateService(
	ctx context.Context,
	entry domain.ServiceEntry,
) (domain.ServiceEntry, error) {
	return s.Store.Services().CreateService(ctx, entry)
}

func (s *ContentService) DeleteService(ctx context.Context, id int64) error {
	return s.Store.Services().DeleteService(ctx, id)
}
