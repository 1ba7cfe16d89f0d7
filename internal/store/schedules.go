package store

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type ScheduleRepository interface {
	// Upsert replaces the doctor's schedule and its windows atomically.
	Upsert(ctx context.Context, sched domain.DoctorSchedule, windows []domain.ScheduleWindow) (domain.DoctorSchedule, []domain.ScheduleWindow, error)
	Get(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error)
}
