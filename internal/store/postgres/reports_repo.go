package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type ReportRepo struct {
	db *bun.DB
}

func NewReportRepo(db *bun.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) AggregateDoctorMonth(ctx context.Context, doctorID uuid.UUID, from, until time.Time) (domain.MonthlyReport, error) {
	report := domain.MonthlyReport{
		DoctorID: doctorID,
		Year:     from.Year(),
		Month:    int(from.Month()),
	}

	var statusRows []struct {
		Status domain.AppointmentStatus `bun:"status"`
		Count  int                      `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("status, count(*) AS count").
		Where("doctor_id = ?", doctorID).
		Where("start_time >= ?", from).
		Where("start_time < ?", until).
		GroupExpr("status").
		Scan(ctx, &statusRows)
	if err != nil {
		return domain.MonthlyReport{}, err
	}

	for _, row := range statusRows {
		report.Total += row.Count
		switch row.Status {
		case domain.StatusCompleted:
			report.Completed = row.Count
		case domain.StatusCancelled:
			report.Cancelled = row.Count
		case domain.StatusRequested:
			report.Requested = row.Count
		case domain.StatusConfirmed:
			report.Confirmed = row.Count
		}
	}

	err = r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("coalesce(sum(fee_amount), 0)").
		Where("doctor_id = ?", doctorID).
		Where("status = ?", domain.StatusCompleted).
		Where("start_time >= ?", from).
		Where("start_time < ?", until).
		Scan(ctx, &report.EarningsAmount)
	if err != nil {
		return domain.MonthlyReport{}, err
	}

	err = r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("count(DISTINCT patient_id)").
		Where("doctor_id = ?", doctorID).
		Where("start_time >= ?", from).
		Where("start_time < ?", until).
		Scan(ctx, &report.UniquePatients)
	if err != nil {
		return domain.MonthlyReport{}, err
	}

	return report, nil
}

func (r *ReportRepo) UpsertMonthlyReport(ctx context.Context, report domain.MonthlyReport) (domain.MonthlyReport, error) {
	m := report
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (doctor_id, year, month) DO UPDATE").
		Set("total = EXCLUDED.total").
		Set("completed = EXCLUDED.completed").
		Set("cancelled = EXCLUDED.cancelled").
		Set("requested = EXCLUDED.requested").
		Set("confirmed = EXCLUDED.confirmed").
		Set("earnings_amount = EXCLUDED.earnings_amount").
		Set("unique_patients = EXCLUDED.unique_patients").
		Set("generated_at = EXCLUDED.generated_at").
		Exec(ctx)
	if err != nil {
		return domain.MonthlyReport{}, err
	}
	return m, nil
}

func (r *ReportRepo) GetMonthlyReport(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error) {
	var m domain.MonthlyReport
	err := r.db.NewSelect().
		Model(&m).
		Where("doctor_id = ?", doctorID).
		Where("year = ?", year).
		Where("month = ?", month).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MonthlyReport{}, store.ErrNotFound
		}
		return domain.MonthlyReport{}, err
	}
	return m, nil
}
