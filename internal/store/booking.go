package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

// BookingTx is the view of the store available inside a doctor-locked
// transaction. Every booking-affecting operation runs its read-check-write
// sequence against this interface so two concurrent requests for the same
// doctor serialize on the advisory lock.
type BookingTx interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// ListActiveOverlapping returns non-cancelled appointments of the
	// doctor intersecting [windowStart, windowEnd), half-open.
	ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	CountPatientAppointments(ctx context.Context, patientID uuid.UUID, dayStart, dayEnd time.Time) (int, error)
	PatientHasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID, dayStart, dayEnd time.Time) (bool, error)

	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start, end time.Time, status domain.AppointmentStatus) (domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)

	GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error)
}

type BookingRepository interface {
	// InDoctorTx runs fn inside a transaction holding the doctor's
	// advisory lock.
	InDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListAll(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error)

	// ListDueForReminder returns active appointments starting within
	// [from, until) whose reminder has not been sent yet.
	ListDueForReminder(ctx context.Context, from, until time.Time) ([]domain.Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID) error
}
