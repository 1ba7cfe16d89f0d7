package reports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo  store.ReportRepository
	users store.UserRepository
}

func NewService(repo store.ReportRepository, users store.UserRepository) *Service {
	return &Service{repo: repo, users: users}
}

// MonthBounds returns the UTC half-open interval covering year/month.
func MonthBounds(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// DoctorMonthly returns the stored report for the period, computing it on
// the fly when no generated report exists yet.
func (s *Service) DoctorMonthly(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error) {
	if doctorID == uuid.Nil {
		return domain.MonthlyReport{}, validationError("doctor_id is required")
	}
	if month < 1 || month > 12 {
		return domain.MonthlyReport{}, validationError("month must be between 1 and 12")
	}
	if year < 2000 {
		return domain.MonthlyReport{}, validationError("year is out of range")
	}

	user, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		return domain.MonthlyReport{}, err
	}
	if user.Role != domain.RoleDoctor {
		return domain.MonthlyReport{}, store.ErrNotFound
	}

	report, err := s.repo.GetMonthlyReport(ctx, doctorID, year, month)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.MonthlyReport{}, err
	}

	from, until := MonthBounds(year, month)
	return s.repo.AggregateDoctorMonth(ctx, doctorID, from, until)
}

// Generate aggregates and persists the report for the period.
func (s *Service) Generate(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error) {
	from, until := MonthBounds(year, month)
	report, err := s.repo.AggregateDoctorMonth(ctx, doctorID, from, until)
	if err != nil {
		return domain.MonthlyReport{}, err
	}
	return s.repo.UpsertMonthlyReport(ctx, report)
}
