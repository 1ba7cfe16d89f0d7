// Package monthly generates the per-doctor report for the previous calendar
// month. The job is idempotent: a period that already has a stored report is
// skipped, so rerunning a cycle never double-counts.
package monthly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/metrics"
	"medibook/backend/internal/notify"
	"medibook/backend/internal/store"
)

// ReportGenerator aggregates and persists one doctor's report for a period.
type ReportGenerator interface {
	Generate(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error)
}

type Job struct {
	users     store.UserRepository
	reports   store.ReportRepository
	generator ReportGenerator
	provider  notify.Provider
	recorder  metrics.Recorder
	logger    *slog.Logger

	now func() time.Time
}

func NewJob(users store.UserRepository, reports store.ReportRepository, generator ReportGenerator, provider notify.Provider, recorder metrics.Recorder, logger *slog.Logger) *Job {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		users:     users,
		reports:   reports,
		generator: generator,
		provider:  provider,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the job on a ticker until the context is cancelled. The first
// cycle runs immediately.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("monthly report job started", slog.Duration("interval", interval))

	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("monthly report cycle failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("monthly report job stopped")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("monthly report cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce generates the previous month's report for every doctor that does
// not have one stored yet.
func (j *Job) RunOnce(ctx context.Context) error {
	year, month := previousMonth(j.now())

	doctors, err := j.users.ListByRole(ctx, domain.RoleDoctor)
	if err != nil {
		return err
	}
	if len(doctors) == 0 {
		return nil
	}

	var generated, skipped, failed int
	for _, doctor := range doctors {
		switch err := j.generateFor(ctx, doctor, year, month); {
		case err == nil:
			generated++
			j.recorder.RecordReportGenerated()
		case errors.Is(err, errAlreadyGenerated):
			skipped++
		default:
			failed++
			j.logger.Error("monthly report generation failed",
				slog.String("doctor_id", doctor.ID.String()),
				slog.Int("year", year),
				slog.Int("month", month),
				slog.String("error", err.Error()),
			)
		}
	}

	j.logger.Info("monthly report cycle finished",
		slog.Int("year", year),
		slog.Int("month", month),
		slog.Int("generated", generated),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
	return nil
}

var errAlreadyGenerated = errors.New("report already generated")

func (j *Job) generateFor(ctx context.Context, doctor domain.User, year, month int) error {
	_, err := j.reports.GetMonthlyReport(ctx, doctor.ID, year, month)
	if err == nil {
		return errAlreadyGenerated
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	report, err := j.generator.Generate(ctx, doctor.ID, year, month)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your report for %04d-%02d is ready: %d appointments completed, %d cancelled, earnings %d.",
		year, month, report.Completed, report.Cancelled, report.EarningsAmount)
	if err := j.provider.Send(ctx, message, doctor.Email); err != nil {
		// The report is stored; a missed notification is not worth a retry
		// of the whole cycle.
		j.logger.Warn("monthly report notification failed",
			slog.String("doctor_id", doctor.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func previousMonth(now time.Time) (int, int) {
	t := now.UTC().AddDate(0, 0, -now.UTC().Day()+1).AddDate(0, -1, 0)
	return t.Year(), int(t.Month())
}
