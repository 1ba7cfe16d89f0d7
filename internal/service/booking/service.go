package booking

import (
	"context"
	"errors"
	"strings"
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

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
)

const (
	// MinAdvance is how far ahead a booking must be made.
	MinAdvance = time.Hour
	// MaxAdvance is the booking horizon.
	MaxAdvance = 90 * 24 * time.Hour
	// MaxPerPatientPerDay caps a patient's bookings on one calendar day.
	MaxPerPatientPerDay = 3
)

// Policy fixes deployment-level booking behavior at wiring time.
type Policy struct {
	// AutoConfirm controls the initial status of a new booking: confirmed
	// when set, requested (awaiting doctor confirmation) otherwise.
	AutoConfirm bool
}

func (p Policy) initialStatus() domain.AppointmentStatus {
	if p.AutoConfirm {
		return domain.StatusConfirmed
	}
	return domain.StatusRequested
}

type Service struct {
	repo   store.BookingRepository
	users  store.UserRepository
	policy Policy
	now    func() time.Time
}

func NewService(repo store.BookingRepository, users store.UserRepository, policy Policy) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type BookInput struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	Notes           string
}

// Book validates the slot against the doctor's schedule and existing
// appointments inside the doctor's lock, then creates the appointment in the
// policy-determined initial status with the doctor's current fee snapshotted.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.PatientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if in.DoctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}

	patient, err := s.users.GetByID(ctx, in.PatientID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if patient.Role != domain.RolePatient {
		return domain.Appointment{}, validationError("only patients can book appointments")
	}

	now := s.now()
	start := in.StartTime.UTC()
	if start.Before(now.Add(MinAdvance)) {
		return domain.Appointment{}, validationError("appointment must be booked at least 1 hour in advance")
	}
	if start.After(now.Add(MaxAdvance)) {
		return domain.Appointment{}, validationError("appointment cannot be booked more than 90 days in advance")
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	end := start.Add(duration)

	var out domain.Appointment
	err = s.repo.InDoctorTx(ctx, in.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		sched, windows, err := tx.GetDoctorSchedule(ctx, in.DoctorID)
		if err != nil {
			return err
		}

		if err := checkSlot(ctx, tx, sched, windows, start, end, uuid.Nil); err != nil {
			return err
		}

		dayStart, dayEnd, err := localDayBounds(sched, start)
		if err != nil {
			return err
		}
		count, err := tx.CountPatientAppointments(ctx, in.PatientID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if count >= MaxPerPatientPerDay {
			return validationError("maximum 3 appointments allowed per day")
		}
		taken, err := tx.PatientHasAppointmentWith(ctx, in.PatientID, in.DoctorID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if taken {
			return validationError("you already have an appointment with this doctor on this date")
		}

		out, err = tx.CreateAppointment(ctx, domain.Appointment{
			PatientID: in.PatientID,
			DoctorID:  in.DoctorID,
			StartTime: start,
			EndTime:   end,
			Status:    s.policy.initialStatus(),
			Notes:     strings.TrimSpace(in.Notes),
			FeeAmount: sched.FeeAmount,
		})
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Get returns a single appointment. Visibility follows the actor matrix:
// the booking patient, the appointment's doctor, or an admin.
func (s *Service) Get(ctx context.Context, appointmentID, actorID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !canActOn(actor, appt) {
		return domain.Appointment{}, ErrForbidden
	}
	return appt, nil
}

// Cancel moves an appointment to cancelled. Only the booking patient, the
// appointment's doctor, or an admin may cancel, and only from an active
// status.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !canActOn(actor, appt) {
		return domain.Appointment{}, ErrForbidden
	}

	var out domain.Appointment
	err = s.repo.InDoctorTx(ctx, appt.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		cur, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransitionTo(domain.StatusCancelled) {
			return ErrInvalidTransition
		}
		out, err = tx.UpdateAppointmentStatus(ctx, appointmentID, domain.StatusCancelled)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Reschedule re-validates the new slot (excluding the appointment itself
// from its own overlap check) and moves the appointment back to requested in
// one atomic update. On conflict the original slot is untouched.
func (s *Service) Reschedule(ctx context.Context, appointmentID, actorID uuid.UUID, newStart time.Time, newDurationMinutes int) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if newDurationMinutes <= 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !canActOn(actor, appt) {
		return domain.Appointment{}, ErrForbidden
	}

	now := s.now()
	start := newStart.UTC()
	if start.Before(now.Add(MinAdvance)) {
		return domain.Appointment{}, validationError("appointment must be booked at least 1 hour in advance")
	}
	if start.After(now.Add(MaxAdvance)) {
		return domain.Appointment{}, validationError("appointment cannot be booked more than 90 days in advance")
	}
	end := start.Add(time.Duration(newDurationMinutes) * time.Minute)

	var out domain.Appointment
	err = s.repo.InDoctorTx(ctx, appt.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		cur, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !cur.Status.Active() {
			return ErrInvalidTransition
		}

		sched, windows, err := tx.GetDoctorSchedule(ctx, cur.DoctorID)
		if err != nil {
			return err
		}
		if err := checkSlot(ctx, tx, sched, windows, start, end, cur.ID); err != nil {
			return err
		}

		out, err = tx.UpdateAppointmentSlot(ctx, appointmentID, start, end, domain.StatusRequested)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// UpdateStatus applies one edge of the lifecycle state machine. Doctors may
// update their own appointments, admins any; patients may only cancel their
// own (and should normally use Cancel).
func (s *Service) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, newStatus domain.AppointmentStatus, actorID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if _, err := domain.ParseAppointmentStatus(string(newStatus)); err != nil {
		return domain.Appointment{}, validationError("invalid status")
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleDoctor:
		if actor.ID != appt.DoctorID {
			return domain.Appointment{}, ErrForbidden
		}
	case domain.RolePatient:
		if actor.ID != appt.PatientID || newStatus != domain.StatusCancelled {
			return domain.Appointment{}, ErrForbidden
		}
	default:
		return domain.Appointment{}, ErrForbidden
	}

	now := s.now()
	var out domain.Appointment
	err = s.repo.InDoctorTx(ctx, appt.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		cur, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransitionTo(newStatus) {
			return ErrInvalidTransition
		}
		if newStatus == domain.StatusCompleted && cur.StartTime.After(now) {
			return validationError("cannot complete a future appointment")
		}
		out, err = tx.UpdateAppointmentStatus(ctx, appointmentID, newStatus)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// IsSlotFree answers the read-only availability question without taking the
// doctor's lock. Booking itself re-checks inside the lock.
func (s *Service) IsSlotFree(ctx context.Context, doctorID uuid.UUID, start time.Time, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, validationError("duration_minutes must be positive")
	}
	sched, windows, err := s.repo.GetDoctorSchedule(ctx, doctorID)
	if err != nil {
		return false, err
	}

	startUTC := start.UTC()
	end := startUTC.Add(time.Duration(durationMinutes) * time.Minute)
	err = checkSlotAgainst(sched, windows, startUTC, end, uuid.Nil, func(ws, we time.Time) ([]domain.Appointment, error) {
		return s.repo.ListActiveOverlapping(ctx, doctorID, ws, we)
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AvailableSlots expands the doctor's weekly windows over [from, until) and
// removes slots taken by active appointments.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, until time.Time) ([]domain.FreeSlot, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	fromUTC := from.UTC()
	untilUTC := until.UTC()
	if !untilUTC.After(fromUTC) {
		return nil, validationError("until must be after from")
	}
	if untilUTC.Sub(fromUTC) > MaxAdvance {
		return nil, validationError("window too large")
	}

	sched, windows, err := s.repo.GetDoctorSchedule(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	busy, err := s.repo.ListActiveOverlapping(ctx, doctorID, fromUTC, untilUTC)
	if err != nil {
		return nil, err
	}

	slots, err := domain.ExpandFreeSlots(sched, windows, busy, fromUTC, untilUTC)
	if err != nil {
		return nil, validationError(err.Error())
	}
	return slots, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if patientID == uuid.Nil {
		return nil, validationError("patient_id is required")
	}
	if !windowEnd.After(windowStart) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListForPatient(ctx, patientID, windowStart.UTC(), windowEnd.UTC())
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	if !windowEnd.After(windowStart) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListForDoctor(ctx, doctorID, windowStart.UTC(), windowEnd.UTC())
}

// ListAll is the admin-wide window query across all doctors and patients.
func (s *Service) ListAll(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if !windowEnd.After(windowStart) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListAll(ctx, windowStart.UTC(), windowEnd.UTC())
}

// checkSlot verifies duration, window coverage and overlap for [start, end)
// against the doctor's agenda as seen through tx. excludeID removes the
// appointment being moved from its own overlap check.
func checkSlot(ctx context.Context, tx store.BookingTx, sched domain.DoctorSchedule, windows []domain.ScheduleWindow, start, end time.Time, excludeID uuid.UUID) error {
	return checkSlotAgainst(sched, windows, start, end, excludeID, func(ws, we time.Time) ([]domain.Appointment, error) {
		return tx.ListActiveOverlapping(ctx, sched.DoctorID, ws, we)
	})
}

func checkSlotAgainst(sched domain.DoctorSchedule, windows []domain.ScheduleWindow, start, end time.Time, excludeID uuid.UUID, overlapping func(ws, we time.Time) ([]domain.Appointment, error)) error {
	duration := end.Sub(start)
	if duration <= 0 {
		return validationError("duration_minutes must be positive")
	}
	if duration > time.Duration(sched.SlotMinutes)*time.Minute {
		return validationError("duration exceeds the doctor's slot length")
	}

	covered, err := domain.CoversSlot(sched, windows, start, end)
	if err != nil {
		return validationError(err.Error())
	}
	if !covered {
		return validationError("slot is outside the doctor's availability")
	}

	appts, err := overlapping(start, end)
	if err != nil {
		return err
	}
	for _, a := range appts {
		if a.ID == excludeID {
			continue
		}
		return store.ErrConflict
	}
	return nil
}

func canActOn(actor domain.User, appt domain.Appointment) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleDoctor:
		return actor.ID == appt.DoctorID
	case domain.RolePatient:
		return actor.ID == appt.PatientID
	}
	return false
}

// localDayBounds returns the doctor-local calendar day containing t, in UTC.
func localDayBounds(sched domain.DoctorSchedule, t time.Time) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, validationError("invalid timezone")
	}
	local := t.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC(), nil
}
