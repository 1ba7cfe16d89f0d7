package http

import (
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

type userResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Mobile     string     `json:"mobile,omitempty"`
	Role       string     `json:"role"`
	DivisionID *uuid.UUID `json:"division_id,omitempty"`
	DistrictID *uuid.UUID `json:"district_id,omitempty"`
	ThanaID    *uuid.UUID `json:"thana_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Mobile:     u.Mobile,
		Role:       string(u.Role),
		DivisionID: u.DivisionID,
		DistrictID: u.DistrictID,
		ThanaID:    u.ThanaID,
		CreatedAt:  u.CreatedAt,
	}
}

type appointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	FeeAmount    int64     `json:"fee_amount"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
		Notes:        a.Notes,
		FeeAmount:    a.FeeAmount,
		ReminderSent: a.ReminderSent,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type windowResponse struct {
	Weekday     int16 `json:"weekday"`
	StartMinute int   `json:"start_minute"`
	EndMinute   int   `json:"end_minute"`
}

type scheduleResponse struct {
	DoctorID    uuid.UUID        `json:"doctor_id"`
	SlotMinutes int              `json:"slot_minutes"`
	FeeAmount   int64            `json:"fee_amount"`
	Timezone    string           `json:"timezone"`
	Windows     []windowResponse `json:"windows"`
}

func toScheduleResponse(sched domain.DoctorSchedule, windows []domain.ScheduleWindow) scheduleResponse {
	out := scheduleResponse{
		DoctorID:    sched.DoctorID,
		SlotMinutes: sched.SlotMinutes,
		FeeAmount:   sched.FeeAmount,
		Timezone:    sched.Timezone,
		Windows:     make([]windowResponse, 0, len(windows)),
	}
	for _, w := range windows {
		out.Windows = append(out.Windows, windowResponse{
			Weekday:     w.Weekday,
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
		})
	}
	return out
}

type slotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type divisionResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

type districtResponse struct {
	ID         uuid.UUID `json:"id"`
	DivisionID uuid.UUID `json:"division_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
}

type thanaResponse struct {
	ID         uuid.UUID `json:"id"`
	DistrictID uuid.UUID `json:"district_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
}

type reportResponse struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	Cancelled      int       `json:"cancelled"`
	Requested      int       `json:"requested"`
	Confirmed      int       `json:"confirmed"`
	EarningsAmount int64     `json:"earnings_amount"`
	UniquePatients int       `json:"unique_patients"`
	CompletionRate float64   `json:"completion_rate"`
}

func toReportResponse(r domain.MonthlyReport) reportResponse {
	return reportResponse{
		DoctorID:       r.DoctorID,
		Year:           r.Year,
		Month:          r.Month,
		Total:          r.Total,
		Completed:      r.Completed,
		Cancelled:      r.Cancelled,
		Requested:      r.Requested,
		Confirmed:      r.Confirmed,
		EarningsAmount: r.EarningsAmount,
		UniquePatients: r.UniquePatients,
		CompletionRate: r.CompletionRate(),
	}
}
