package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Upsert(ctx context.Context, sched domain.DoctorSchedule, windows []domain.ScheduleWindow) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	outSched := sched
	outWindows := make([]domain.ScheduleWindow, len(windows))
	copy(outWindows, windows)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorAgenda(ctx, tx, sched.DoctorID); err != nil {
			return err
		}

		_, err := tx.NewInsert().
			Model(&outSched).
			On("CONFLICT (doctor_id) DO UPDATE").
			Set("slot_minutes = EXCLUDED.slot_minutes").
			Set("fee_amount = EXCLUDED.fee_amount").
			Set("timezone = EXCLUDED.timezone").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*domain.ScheduleWindow)(nil)).
			Where("doctor_id = ?", sched.DoctorID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if len(outWindows) == 0 {
			return nil
		}
		for i := range outWindows {
			outWindows[i].DoctorID = sched.DoctorID
		}
		_, err = tx.NewInsert().Model(&outWindows).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.DoctorSchedule{}, nil, err
	}
	return outSched, outWindows, nil
}

func (r *ScheduleRepo) Get(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error) {
	return getDoctorSchedule(ctx, r.db, doctorID)
}
