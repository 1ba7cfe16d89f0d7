package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

// fakeBookingRepo keeps appointments in memory and serializes transactions
// on a mutex the way the advisory lock serializes them in Postgres.
type fakeBookingRepo struct {
	mu      sync.Mutex
	appts   map[uuid.UUID]domain.Appointment
	sched   domain.DoctorSchedule
	windows []domain.ScheduleWindow
}

func newFakeBookingRepo(sched domain.DoctorSchedule, windows []domain.ScheduleWindow) *fakeBookingRepo {
	return &fakeBookingRepo{
		appts:   make(map[uuid.UUID]domain.Appointment),
		sched:   sched,
		windows: windows,
	}
}

func (r *fakeBookingRepo) InDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, fakeTx{r: r})
}

func (r *fakeBookingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getAppointment(id)
}

func (r *fakeBookingRepo) getAppointment(id uuid.UUID) (domain.Appointment, error) {
	appt, ok := r.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

func (r *fakeBookingRepo) ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listActiveOverlapping(doctorID, windowStart, windowEnd), nil
}

func (r *fakeBookingRepo) listActiveOverlapping(doctorID uuid.UUID, windowStart, windowEnd time.Time) []domain.Appointment {
	var out []domain.Appointment
	for _, a := range r.appts {
		if a.DoctorID != doctorID || a.Status == domain.StatusCancelled {
			continue
		}
		if domain.Overlaps(a.StartTime, a.EndTime, windowStart, windowEnd) {
			out = append(out, a)
		}
	}
	return out
}

func (r *fakeBookingRepo) ListForPatient(ctx context.Context, patientID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID && domain.Overlaps(a.StartTime, a.EndTime, windowStart, windowEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID && domain.Overlaps(a.StartTime, a.EndTime, windowStart, windowEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListAll(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.appts {
		if domain.Overlaps(a.StartTime, a.EndTime, windowStart, windowEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getDoctorSchedule(doctorID)
}

func (r *fakeBookingRepo) getDoctorSchedule(doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	if r.sched.DoctorID != doctorID {
		return domain.DoctorSchedule{}, nil, store.ErrNotFound
	}
	return r.sched, r.windows, nil
}

func (r *fakeBookingRepo) ListDueForReminder(ctx context.Context, from, until time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.appts {
		if a.Status.Active() && !a.ReminderSent && !a.StartTime.Before(from) && a.StartTime.Before(until) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) MarkReminded(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.ReminderSent = true
	r.appts[id] = a
	return nil
}

// fakeTx operates on the repo while the caller holds its lock.
type fakeTx struct {
	r *fakeBookingRepo
}

func (t fakeTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return t.r.getAppointment(id)
}

func (t fakeTx) ListActiveOverlapping(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return t.r.listActiveOverlapping(doctorID, windowStart, windowEnd), nil
}

func (t fakeTx) CountPatientAppointments(ctx context.Context, patientID uuid.UUID, dayStart, dayEnd time.Time) (int, error) {
	n := 0
	for _, a := range t.r.appts {
		if a.PatientID == patientID && a.Status != domain.StatusCancelled &&
			!a.StartTime.Before(dayStart) && a.StartTime.Before(dayEnd) {
			n++
		}
	}
	return n, nil
}

func (t fakeTx) PatientHasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID, dayStart, dayEnd time.Time) (bool, error) {
	for _, a := range t.r.appts {
		if a.PatientID == patientID && a.DoctorID == doctorID && a.Status != domain.StatusCancelled &&
			!a.StartTime.Before(dayStart) && a.StartTime.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (t fakeTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.ID = id
	t.r.appts[id] = appt
	return appt, nil
}

func (t fakeTx) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start, end time.Time, status domain.AppointmentStatus) (domain.Appointment, error) {
	a, ok := t.r.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.Status = status
	a.ReminderSent = false
	t.r.appts[id] = a
	return a, nil
}

func (t fakeTx) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	a, ok := t.r.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	a.Status = status
	t.r.appts[id] = a
	return a, nil
}

func (t fakeTx) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	return t.r.getDoctorSchedule(doctorID)
}

type fakeUsers struct {
	byID map[uuid.UUID]domain.User
}

func (f *fakeUsers) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (f *fakeUsers) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// Fixture: a doctor working 09:00-17:00 UTC every weekday with 30-minute
// slots, a patient, and "now" fixed to a Monday morning.
type fixture struct {
	svc     *Service
	repo    *fakeBookingRepo
	doctor  domain.User
	patient domain.User
	other   domain.User
	admin   domain.User
	now     time.Time
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	doctorID := uuid.New()
	sched := domain.DoctorSchedule{
		DoctorID:    doctorID,
		SlotMinutes: 30,
		FeeAmount:   50000,
		Timezone:    "UTC",
	}
	var windows []domain.ScheduleWindow
	for wd := int16(1); wd <= 5; wd++ {
		windows = append(windows, domain.ScheduleWindow{
			DoctorID:    doctorID,
			Weekday:     wd,
			StartMinute: 9 * 60,
			EndMinute:   17 * 60,
		})
	}

	repo := newFakeBookingRepo(sched, windows)

	doctor := domain.User{ID: doctorID, Email: "doc@example.com", Role: domain.RoleDoctor}
	patient := domain.User{ID: uuid.New(), Email: "pat@example.com", Role: domain.RolePatient}
	other := domain.User{ID: uuid.New(), Email: "other@example.com", Role: domain.RolePatient}
	admin := domain.User{ID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin}

	users := &fakeUsers{byID: map[uuid.UUID]domain.User{
		doctor.ID:  doctor,
		patient.ID: patient,
		other.ID:   other,
		admin.ID:   admin,
	}}

	// 2026-03-02 is a Monday.
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	svc := NewService(repo, users, policy)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, doctor: doctor, patient: patient, other: other, admin: admin, now: now}
}

// slotAt returns a start time on the fixture Monday at the given hour and
// minute, inside the doctor's working hours.
func (f *fixture) slotAt(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func (f *fixture) book(t *testing.T, patientID uuid.UUID, start time.Time) domain.Appointment {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       patientID,
		DoctorID:        f.doctor.ID,
		StartTime:       start,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	return appt
}

func TestBook_CreatesRequestedAppointmentWithFeeSnapshot(t *testing.T) {
	f := newFixture(t, Policy{})

	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	if appt.Status != domain.StatusRequested {
		t.Fatalf("status = %q, want %q", appt.Status, domain.StatusRequested)
	}
	if appt.FeeAmount != 50000 {
		t.Fatalf("fee_amount = %d, want 50000", appt.FeeAmount)
	}
	if got := appt.EndTime.Sub(appt.StartTime); got != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", got)
	}
}

func TestBook_AutoConfirmPolicy(t *testing.T) {
	f := newFixture(t, Policy{AutoConfirm: true})

	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))
	if appt.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want %q", appt.Status, domain.StatusConfirmed)
	}
}

func TestBook_OverlappingSlotConflicts(t *testing.T) {
	f := newFixture(t, Policy{})
	f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.other.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(10, 15),
		DurationMinutes: 30,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestBook_AbuttingSlotsDoNotConflict(t *testing.T) {
	f := newFixture(t, Policy{})
	f.book(t, f.patient.ID, f.slotAt(10, 0))

	// [10:30, 11:00) abuts [10:00, 10:30): no overlap under half-open
	// semantics.
	if _, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.other.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(10, 30),
		DurationMinutes: 30,
	}); err != nil {
		t.Fatalf("Book error: %v", err)
	}
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	if _, err := f.svc.Cancel(context.Background(), appt.ID, f.patient.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	f.book(t, f.other.ID, f.slotAt(10, 0))
}

func TestBook_OutsideAvailabilityRejected(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(18, 0),
		DurationMinutes: 30,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestBook_DurationExceedingSlotLengthRejected(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(10, 0),
		DurationMinutes: 45,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestBook_AdvanceBounds(t *testing.T) {
	f := newFixture(t, Policy{})

	// Less than an hour ahead.
	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.now.Add(30 * time.Minute),
		DurationMinutes: 30,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("short-notice error type = %T, want *ValidationError", err)
	}

	// Past the 90-day horizon.
	_, err = f.svc.Book(context.Background(), BookInput{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.now.Add(MaxAdvance + time.Hour),
		DurationMinutes: 30,
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("horizon error type = %T, want *ValidationError", err)
	}
}

func TestBook_SameDoctorSameDayRejected(t *testing.T) {
	f := newFixture(t, Policy{})
	f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(14, 0),
		DurationMinutes: 30,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestBook_DoctorCannotBook(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID:       f.doctor.ID,
		DoctorID:        f.doctor.ID,
		StartTime:       f.slotAt(10, 0),
		DurationMinutes: 30,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestBook_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	f := newFixture(t, Policy{})
	start := f.slotAt(10, 0)

	const attempts = 8
	patients := make([]uuid.UUID, attempts)
	users := f.svc.users.(*fakeUsers)
	for i := range patients {
		id := uuid.New()
		users.byID[id] = domain.User{ID: id, Role: domain.RolePatient}
		patients[i] = id
	}

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(context.Background(), BookInput{
				PatientID:       patients[i],
				DoctorID:        f.doctor.ID,
				StartTime:       start,
				DurationMinutes: 30,
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, store.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}
}

func TestCancel_CompletedAppointmentRejected(t *testing.T) {
	f := newFixture(t, Policy{AutoConfirm: true})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	// Force the appointment into a terminal state.
	f.repo.mu.Lock()
	a := f.repo.appts[appt.ID]
	a.Status = domain.StatusCompleted
	f.repo.appts[appt.ID] = a
	f.repo.mu.Unlock()

	_, err := f.svc.Cancel(context.Background(), appt.ID, f.patient.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestCancel_UnrelatedPatientForbidden(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.Cancel(context.Background(), appt.ID, f.other.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestCancel_DoctorAndAdminAllowed(t *testing.T) {
	f := newFixture(t, Policy{})

	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))
	if _, err := f.svc.Cancel(context.Background(), appt.ID, f.doctor.ID); err != nil {
		t.Fatalf("doctor cancel error: %v", err)
	}

	appt = f.book(t, f.patient.ID, f.slotAt(11, 0))
	if _, err := f.svc.Cancel(context.Background(), appt.ID, f.admin.ID); err != nil {
		t.Fatalf("admin cancel error: %v", err)
	}
}

func TestReschedule_MovesSlotAndResetsStatus(t *testing.T) {
	f := newFixture(t, Policy{AutoConfirm: true})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	moved, err := f.svc.Reschedule(context.Background(), appt.ID, f.patient.ID, f.slotAt(14, 0), 30)
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if moved.Status != domain.StatusRequested {
		t.Fatalf("status = %q, want %q", moved.Status, domain.StatusRequested)
	}
	if !moved.StartTime.Equal(f.slotAt(14, 0)) {
		t.Fatalf("start_time = %v, want %v", moved.StartTime, f.slotAt(14, 0))
	}
	if moved.ReminderSent {
		t.Fatal("reminder flag should reset on reschedule")
	}
}

func TestReschedule_OntoOwnSlotSucceeds(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	// The appointment must not conflict with itself.
	if _, err := f.svc.Reschedule(context.Background(), appt.ID, f.patient.ID, f.slotAt(10, 0), 30); err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
}

func TestReschedule_ConflictLeavesOriginalSlot(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))
	f.book(t, f.other.ID, f.slotAt(11, 0))

	_, err := f.svc.Reschedule(context.Background(), appt.ID, f.patient.ID, f.slotAt(11, 0), 30)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	cur, err := f.repo.GetAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment error: %v", err)
	}
	if !cur.StartTime.Equal(f.slotAt(10, 0)) {
		t.Fatalf("start_time = %v, want original %v", cur.StartTime, f.slotAt(10, 0))
	}
}

func TestReschedule_CancelledAppointmentRejected(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))
	if _, err := f.svc.Cancel(context.Background(), appt.ID, f.patient.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	_, err := f.svc.Reschedule(context.Background(), appt.ID, f.patient.ID, f.slotAt(14, 0), 30)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatus_DoctorConfirms(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	out, err := f.svc.UpdateStatus(context.Background(), appt.ID, domain.StatusConfirmed, f.doctor.ID)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if out.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want %q", out.Status, domain.StatusConfirmed)
	}
}

func TestUpdateStatus_PatientCannotConfirm(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.UpdateStatus(context.Background(), appt.ID, domain.StatusConfirmed, f.patient.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatus_RequestedCannotComplete(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.UpdateStatus(context.Background(), appt.ID, domain.StatusCompleted, f.doctor.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatus_FutureAppointmentCannotComplete(t *testing.T) {
	f := newFixture(t, Policy{AutoConfirm: true})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	_, err := f.svc.UpdateStatus(context.Background(), appt.ID, domain.StatusCompleted, f.doctor.ID)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestUpdateStatus_PastConfirmedCompletes(t *testing.T) {
	f := newFixture(t, Policy{AutoConfirm: true})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	// Move the clock past the appointment.
	f.svc.now = func() time.Time { return f.slotAt(11, 0) }

	out, err := f.svc.UpdateStatus(context.Background(), appt.ID, domain.StatusCompleted, f.doctor.ID)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if out.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want %q", out.Status, domain.StatusCompleted)
	}
}

func TestGet_VisibilityFollowsActorMatrix(t *testing.T) {
	f := newFixture(t, Policy{})
	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	for _, actor := range []domain.User{f.patient, f.doctor, f.admin} {
		got, err := f.svc.Get(context.Background(), appt.ID, actor.ID)
		if err != nil {
			t.Fatalf("Get as %s error: %v", actor.Role, err)
		}
		if got.ID != appt.ID {
			t.Fatalf("Get as %s returned id %v, want %v", actor.Role, got.ID, appt.ID)
		}
	}

	if _, err := f.svc.Get(context.Background(), appt.ID, f.other.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unrelated patient error = %v, want ErrForbidden", err)
	}
}

func TestGet_UnknownAppointmentNotFound(t *testing.T) {
	f := newFixture(t, Policy{})

	_, err := f.svc.Get(context.Background(), uuid.New(), f.admin.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListAll_ReturnsEveryAppointmentInWindow(t *testing.T) {
	f := newFixture(t, Policy{})
	f.book(t, f.patient.ID, f.slotAt(10, 0))
	f.book(t, f.other.ID, f.slotAt(11, 0))

	appts, err := f.svc.ListAll(context.Background(), f.slotAt(9, 0), f.slotAt(17, 0))
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("appointments = %d, want 2", len(appts))
	}

	if _, err := f.svc.ListAll(context.Background(), f.slotAt(17, 0), f.slotAt(9, 0)); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestIsSlotFree(t *testing.T) {
	f := newFixture(t, Policy{})

	free, err := f.svc.IsSlotFree(context.Background(), f.doctor.ID, f.slotAt(10, 0), 30)
	if err != nil {
		t.Fatalf("IsSlotFree error: %v", err)
	}
	if !free {
		t.Fatal("expected free slot")
	}

	f.book(t, f.patient.ID, f.slotAt(10, 0))

	free, err = f.svc.IsSlotFree(context.Background(), f.doctor.ID, f.slotAt(10, 0), 30)
	if err != nil {
		t.Fatalf("IsSlotFree error: %v", err)
	}
	if free {
		t.Fatal("expected booked slot to be reported taken")
	}
}

func TestAvailableSlots_ExcludesBookedIncludesCancelled(t *testing.T) {
	f := newFixture(t, Policy{})
	from := f.slotAt(9, 0)
	until := f.slotAt(17, 0)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, from, until)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("slot count = %d, want 16", len(slots))
	}

	appt := f.book(t, f.patient.ID, f.slotAt(10, 0))

	slots, err = f.svc.AvailableSlots(context.Background(), f.doctor.ID, from, until)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("slot count after booking = %d, want 15", len(slots))
	}
	for _, slot := range slots {
		if slot.StartTime.Equal(appt.StartTime) {
			t.Fatalf("booked slot %v still listed", slot.StartTime)
		}
	}

	if _, err := f.svc.Cancel(context.Background(), appt.ID, f.patient.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	slots, err = f.svc.AvailableSlots(context.Background(), f.doctor.ID, from, until)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("slot count after cancel = %d, want 16", len(slots))
	}
}
