package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type ReportRepository interface {
	// AggregateDoctorMonth computes the stats for appointments with a start
	// time in [from, until).
	AggregateDoctorMonth(ctx context.Context, doctorID uuid.UUID, from, until time.Time) (domain.MonthlyReport, error)
	UpsertMonthlyReport(ctx context.Context, report domain.MonthlyReport) (domain.MonthlyReport, error)
	GetMonthlyReport(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error)
}
