// Package reminder delivers upcoming-appointment reminders on a fixed
// interval. Delivery is idempotent: an appointment is marked reminded only
// after the provider acknowledges the send, so a crashed cycle retries it.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/metrics"
	"medibook/backend/internal/notify"
	"medibook/backend/internal/store"
)

type Job struct {
	repo     store.BookingRepository
	users    store.UserRepository
	provider notify.Provider
	recorder metrics.Recorder
	logger   *slog.Logger

	// Lead is how far ahead of the start time reminders go out.
	Lead time.Duration

	now func() time.Time
}

func NewJob(repo store.BookingRepository, users store.UserRepository, provider notify.Provider, recorder metrics.Recorder, logger *slog.Logger) *Job {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		repo:     repo,
		users:    users,
		provider: provider,
		recorder: recorder,
		logger:   logger,
		Lead:     24 * time.Hour,
		now:      time.Now,
	}
}

// Start runs the job on a ticker until the context is cancelled. The first
// cycle runs immediately.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("reminder job started",
		slog.Duration("interval", interval),
		slog.Duration("lead", j.Lead),
	)

	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("reminder cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("reminder job stopped")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("reminder cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce processes every appointment starting within the lead window whose
// reminder is still pending. A failed send leaves the appointment pending
// for the next cycle.
func (j *Job) RunOnce(ctx context.Context) error {
	now := j.now()
	due, err := j.repo.ListDueForReminder(ctx, now, now.Add(j.Lead))
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	j.logger.Info("reminder cycle started", slog.Int("due_count", len(due)))

	var sent, failed int
	for _, appt := range due {
		if err := j.remind(ctx, appt); err != nil {
			failed++
			j.recorder.RecordReminderFailure()
			j.logger.Error("reminder delivery failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
		j.recorder.RecordReminderSent()
	}

	j.logger.Info("reminder cycle finished",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	return nil
}

func (j *Job) remind(ctx context.Context, appt domain.Appointment) error {
	patient, err := j.users.GetByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	doctor, err := j.users.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}

	message := fmt.Sprintf("Reminder: your appointment with %s starts at %s.",
		doctor.FullName, appt.StartTime.Format(time.RFC1123))

	if err := j.provider.Send(ctx, message, patient.Email); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	// Mark only after the provider accepted the message.
	if err := j.repo.MarkReminded(ctx, appt.ID); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
