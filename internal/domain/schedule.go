package domain

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DoctorSchedule holds a doctor's consultation settings. The weekly
// availability itself lives in ScheduleWindow rows.
type DoctorSchedule struct {
	bun.BaseModel `bun:"table:doctor_schedules"`

	DoctorID    uuid.UUID `bun:"doctor_id,pk,type:uuid"`
	SlotMinutes int       `bun:"slot_minutes,notnull"`
	FeeAmount   int64     `bun:"fee_amount,notnull"`
	Timezone    string    `bun:"timezone,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (s *DoctorSchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// ScheduleWindow is one weekly availability window. Weekday follows the
// 1=Monday .. 7=Sunday convention; StartMinute/EndMinute are minutes from
// local midnight, half-open.
type ScheduleWindow struct {
	bun.BaseModel `bun:"table:schedule_windows"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID    uuid.UUID `bun:"doctor_id,notnull,type:uuid"`
	Weekday     int16     `bun:"weekday,notnull"`
	StartMinute int       `bun:"start_minute,notnull"`
	EndMinute   int       `bun:"end_minute,notnull"`
}

func (w *ScheduleWindow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && w.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		w.ID = id
	}
	return nil
}

// FreeSlot is a concrete bookable interval derived from a weekly window.
type FreeSlot struct {
	StartTime time.Time
	EndTime   time.Time
}

func localWeekday(t time.Time) int16 {
	wd := t.Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int16(wd)
}

// CoversSlot reports whether [start, end) falls inside one of the doctor's
// weekly windows, evaluated in the schedule's timezone. A slot that crosses
// local midnight is never covered.
func CoversSlot(sched DoctorSchedule, windows []ScheduleWindow, start, end time.Time) (bool, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return false, errors.New("invalid timezone")
	}
	if !end.After(start) {
		return false, nil
	}

	startLocal := start.In(loc)
	endLocal := end.In(loc)

	y1, m1, d1 := startLocal.Date()
	y2, m2, d2 := endLocal.Add(-time.Nanosecond).Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return false, nil
	}

	weekday := localWeekday(startLocal)
	startMin := startLocal.Hour()*60 + startLocal.Minute()
	endMin := startMin + int(end.Sub(start)/time.Minute)

	for _, w := range windows {
		if w.Weekday != weekday {
			continue
		}
		if startMin >= w.StartMinute && endMin <= w.EndMinute {
			return true, nil
		}
	}
	return false, nil
}

// ExpandFreeSlots expands the weekly windows into concrete slot-sized
// candidates within [from, to) and removes those overlapping a busy span.
// Busy spans are compared half-open, so a slot that merely abuts a booked
// appointment stays free.
func ExpandFreeSlots(sched DoctorSchedule, windows []ScheduleWindow, busy []Appointment, from, to time.Time) ([]FreeSlot, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return nil, errors.New("invalid timezone")
	}
	if sched.SlotMinutes <= 0 {
		return nil, errors.New("invalid slot duration")
	}

	slotDur := time.Duration(sched.SlotMinutes) * time.Minute
	fromLocal := from.In(loc)
	day := time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day(), 0, 0, 0, 0, loc)

	byWeekday := make(map[int16][]ScheduleWindow, len(windows))
	for _, w := range windows {
		byWeekday[w.Weekday] = append(byWeekday[w.Weekday], w)
	}

	out := make([]FreeSlot, 0, 16)
	for ; day.Before(to.In(loc)); day = day.AddDate(0, 0, 1) {
		for _, w := range byWeekday[localWeekday(day)] {
			for m := w.StartMinute; m+sched.SlotMinutes <= w.EndMinute; m += sched.SlotMinutes {
				start := day.Add(time.Duration(m) * time.Minute).UTC()
				end := start.Add(slotDur)
				if start.Before(from) || end.After(to) {
					continue
				}
				taken := false
				for _, b := range busy {
					// Same filter as the booking overlap query: every
					// non-cancelled row holds its slot.
					if b.Status != StatusCancelled && Overlaps(start, end, b.StartTime, b.EndTime) {
						taken = true
						break
					}
				}
				if !taken {
					out = append(out, FreeSlot{StartTime: start, EndTime: end})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// ValidateWindows checks weekday range, minute bounds and the invariant
// that one doctor's windows never overlap.
func ValidateWindows(windows []ScheduleWindow) error {
	for _, w := range windows {
		if w.Weekday < 1 || w.Weekday > 7 {
			return errors.New("weekday must be between 1 and 7")
		}
		if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
			return errors.New("window minutes out of range")
		}
	}

	sorted := make([]ScheduleWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weekday != sorted[j].Weekday {
			return sorted[i].Weekday < sorted[j].Weekday
		}
		return sorted[i].StartMinute < sorted[j].StartMinute
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Weekday == cur.Weekday && cur.StartMinute < prev.EndMinute {
			return errors.New("availability windows overlap")
		}
	}
	return nil
}
