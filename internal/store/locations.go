package store

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type LocationRepository interface {
	ListDivisions(ctx context.Context) ([]domain.Division, error)
	ListDistricts(ctx context.Context, divisionID uuid.UUID) ([]domain.District, error)
	ListThanas(ctx context.Context, districtID uuid.UUID) ([]domain.Thana, error)
}
