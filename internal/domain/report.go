package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MonthlyReport is the persisted per-doctor monthly summary produced by the
// background report job.
type MonthlyReport struct {
	bun.BaseModel `bun:"table:monthly_reports"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID        uuid.UUID `bun:"doctor_id,notnull,type:uuid"`
	Year            int       `bun:"year,notnull"`
	Month           int       `bun:"month,notnull"`
	Total           int       `bun:"total,notnull"`
	Completed       int       `bun:"completed,notnull"`
	Cancelled       int       `bun:"cancelled,notnull"`
	Requested       int       `bun:"requested,notnull"`
	Confirmed       int       `bun:"confirmed,notnull"`
	EarningsAmount  int64     `bun:"earnings_amount,notnull"`
	UniquePatients  int       `bun:"unique_patients,notnull"`
	GeneratedAt     time.Time `bun:"generated_at,notnull"`
}

// CompletionRate is completed over total, in percent. Zero totals yield zero.
func (r *MonthlyReport) CompletionRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.Total) * 100
}

func (r *MonthlyReport) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if r.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	return nil
}
