package http

import (
	"net/http"

	"medibook/backend/internal/service/schedules"
)

type upsertScheduleRequest struct {
	SlotMinutes int    `json:"slot_minutes"`
	FeeAmount   int64  `json:"fee_amount"`
	Timezone    string `json:"timezone"`
	Windows     []struct {
		Weekday     int16 `json:"weekday"`
		StartMinute int   `json:"start_minute"`
		EndMinute   int   `json:"end_minute"`
	} `json:"windows"`
}

func (s *Server) handleUpsertSchedule(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req upsertScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	in := schedules.UpsertInput{
		DoctorID:    id.UserID,
		SlotMinutes: req.SlotMinutes,
		FeeAmount:   req.FeeAmount,
		Timezone:    req.Timezone,
	}
	for _, win := range req.Windows {
		in.Windows = append(in.Windows, schedules.WindowInput{
			Weekday:     win.Weekday,
			StartMinute: win.StartMinute,
			EndMinute:   win.EndMinute,
		})
	}

	sched, windows, err := s.deps.Schedules.Upsert(r.Context(), in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched, windows))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid doctor id")
		return
	}

	sched, windows, err := s.deps.Schedules.Get(r.Context(), doctorID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched, windows))
}
