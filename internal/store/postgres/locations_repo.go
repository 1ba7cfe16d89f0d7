package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
)

type LocationRepo struct {
	db *bun.DB
}

func NewLocationRepo(db *bun.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) ListDivisions(ctx context.Context) ([]domain.Division, error) {
	var rows []domain.Division
	err := r.db.NewSelect().Model(&rows).OrderExpr("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LocationRepo) ListDistricts(ctx context.Context, divisionID uuid.UUID) ([]domain.District, error) {
	var rows []domain.District
	err := r.db.NewSelect().
		Model(&rows).
		Where("division_id = ?", divisionID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LocationRepo) ListThanas(ctx context.Context, districtID uuid.UUID) ([]domain.Thana, error) {
	var rows []domain.Thana
	err := r.db.NewSelect().
		Model(&rows).
		Where("district_id = ?", districtID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
