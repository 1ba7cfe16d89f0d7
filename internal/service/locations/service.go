package locations

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

// Service exposes the read-only Division → District → Thana directory.
type Service struct {
	repo store.LocationRepository
}

func NewService(repo store.LocationRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDivisions(ctx context.Context) ([]domain.Division, error) {
	return s.repo.ListDivisions(ctx)
}

func (s *Service) ListDistricts(ctx context.Context, divisionID uuid.UUID) ([]domain.District, error) {
	return s.repo.ListDistricts(ctx, divisionID)
}

func (s *Service) ListThanas(ctx context.Context, districtID uuid.UUID) ([]domain.Thana, error) {
	return s.repo.ListThanas(ctx, districtID)
}
