package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) InDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorAgenda(ctx, tx, doctorID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockDoctorAgenda(ctx context.Context, tx bun.Tx, doctorID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID.String()).Exec(ctx)
	return err
}

func (r *BookingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.db, id)
}

func (r *BookingRepo) ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listActiveOverlapping(ctx, r.db, doctorID, windowStart, windowEnd)
}

func (r *BookingRepo) ListForPatient(ctx context.Context, patientID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListAll(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	return getDoctorSchedule(ctx, r.db, doctorID)
}

func (r *BookingRepo) ListDueForReminder(ctx context.Context, from, until time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("reminder_sent = false").
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.StatusRequested, domain.StatusConfirmed})).
		Where("start_time >= ?", from).
		Where("start_time < ?", until).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) MarkReminded(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("reminder_sent = true").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t bookingTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, t.tx, id)
}

func (t bookingTx) ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listActiveOverlapping(ctx, t.tx, doctorID, windowStart, windowEnd)
}

func (t bookingTx) CountPatientAppointments(ctx context.Context, patientID uuid.UUID, dayStart, dayEnd time.Time) (int, error) {
	return t.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("patient_id = ?", patientID).
		Where("status <> ?", domain.StatusCancelled).
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayEnd).
		Count(ctx)
}

func (t bookingTx) PatientHasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID, dayStart, dayEnd time.Time) (bool, error) {
	return t.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("patient_id = ?", patientID).
		Where("doctor_id = ?", doctorID).
		Where("status <> ?", domain.StatusCancelled).
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayEnd).
		Exists(ctx)
}

func (t bookingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapConstraintError(err)
	}
	return m, nil
}

func (t bookingTx) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start, end time.Time, status domain.AppointmentStatus) (domain.Appointment, error) {
	var m domain.Appointment
	res, err := t.tx.NewUpdate().
		Model(&m).
		Set("start_time = ?", start).
		Set("end_time = ?", end).
		Set("status = ?", status).
		Set("reminder_sent = false").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapConstraintError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (t bookingTx) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	var m domain.Appointment
	res, err := t.tx.NewUpdate().
		Model(&m).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (t bookingTx) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	return getDoctorSchedule(ctx, t.tx, doctorID)
}

func getAppointment(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := db.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func listActiveOverlapping(ctx context.Context, db bun.IDB, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("status <> ?", domain.StatusCancelled).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func getDoctorSchedule(ctx context.Context, db bun.IDB, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	var sched domain.DoctorSchedule
	err := db.NewSelect().Model(&sched).Where("doctor_id = ?", doctorID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DoctorSchedule{}, nil, store.ErrNotFound
		}
		return domain.DoctorSchedule{}, nil, err
	}

	var windows []domain.ScheduleWindow
	err = db.NewSelect().
		Model(&windows).
		Where("doctor_id = ?", doctorID).
		OrderExpr("weekday ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return domain.DoctorSchedule{}, nil, err
	}
	return sched, windows, nil
}

// mapConstraintError translates the doctor-overlap exclusion constraint into
// the conflict sentinel. The constraint is the backstop behind the in-lock
// overlap check.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return store.ErrConflict
		}
	}
	return err
}
