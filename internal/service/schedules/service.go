package schedules

import (
	"context"
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

const (
	minSlotMinutes = 5
	maxSlotMinutes = 240
)

type Service struct {
	repo  store.ScheduleRepository
	users store.UserRepository
}

func NewService(repo store.ScheduleRepository, users store.UserRepository) *Service {
	return &Service{repo: repo, users: users}
}

type WindowInput struct {
	Weekday     int16
	StartMinute int
	EndMinute   int
}

type UpsertInput struct {
	DoctorID    uuid.UUID
	SlotMinutes int
	FeeAmount   int64
	Timezone    string
	Windows     []WindowInput
}

// Upsert replaces the doctor's weekly availability. Windows must be valid
// and non-overlapping per weekday.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	if in.DoctorID == uuid.Nil {
		return domain.DoctorSchedule{}, nil, validationError("doctor_id is required")
	}
	if in.SlotMinutes < minSlotMinutes || in.SlotMinutes > maxSlotMinutes {
		return domain.DoctorSchedule{}, nil, validationError("slot_minutes must be between 5 and 240")
	}
	if in.FeeAmount < 0 {
		return domain.DoctorSchedule{}, nil, validationError("fee_amount must not be negative")
	}
	if len(in.Windows) == 0 {
		return domain.DoctorSchedule{}, nil, validationError("at least one availability window is required")
	}

	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.DoctorSchedule{}, nil, validationError("invalid timezone")
	}

	user, err := s.users.GetByID(ctx, in.DoctorID)
	if err != nil {
		return domain.DoctorSchedule{}, nil, err
	}
	if user.Role != domain.RoleDoctor {
		return domain.DoctorSchedule{}, nil, validationError("schedules belong to doctors")
	}

	windows := make([]domain.ScheduleWindow, 0, len(in.Windows))
	for _, w := range in.Windows {
		windows = append(windows, domain.ScheduleWindow{
			DoctorID:    in.DoctorID,
			Weekday:     w.Weekday,
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
		})
	}
	if err := domain.ValidateWindows(windows); err != nil {
		return domain.DoctorSchedule{}, nil, validationError(err.Error())
	}

	return s.repo.Upsert(ctx, domain.DoctorSchedule{
		DoctorID:    in.DoctorID,
		SlotMinutes: in.SlotMinutes,
		FeeAmount:   in.FeeAmount,
		Timezone:    tz,
	}, windows)
}

func (s *Service) Get(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	if doctorID == uuid.Nil {
		return domain.DoctorSchedule{}, nil, validationError("doctor_id is required")
	}
	return s.repo.Get(ctx, doctorID)
}
