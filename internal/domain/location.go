package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Division struct {
	bun.BaseModel `bun:"table:divisions"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull,unique"`
	Code      string    `bun:"code,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type District struct {
	bun.BaseModel `bun:"table:districts"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	DivisionID uuid.UUID `bun:"division_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Code       string    `bun:"code,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

type Thana struct {
	bun.BaseModel `bun:"table:thanas"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	DistrictID uuid.UUID `bun:"district_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Code       string    `bun:"code,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (d *Division) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampLocation(&d.ID, &d.CreatedAt, query)
}

func (d *District) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampLocation(&d.ID, &d.CreatedAt, query)
}

func (t *Thana) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampLocation(&t.ID, &t.CreatedAt, query)
}

func stampLocation(id *uuid.UUID, createdAt *time.Time, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if *id == uuid.Nil {
		v, err := uuid.NewV7()
		if err != nil {
			return err
		}
		*id = v
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	return nil
}
