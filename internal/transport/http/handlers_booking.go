package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/store"
)

type bookRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req bookRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	appt, err := s.deps.Booking.Book(r.Context(), booking.BookInput{
		PatientID:       id.UserID,
		DoctorID:        req.DoctorID,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.recorder.RecordBookingConflict()
		}
		writeError(w, s.logger, err)
		return
	}
	s.recorder.RecordBooking()
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	apptID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid appointment id")
		return
	}

	appt, err := s.deps.Booking.Cancel(r.Context(), apptID, id.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	apptID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid appointment id")
		return
	}

	var req rescheduleRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	appt, err := s.deps.Booking.Reschedule(r.Context(), apptID, id.UserID, req.StartTime, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.recorder.RecordBookingConflict()
		}
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	apptID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid appointment id")
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	appt, err := s.deps.Booking.UpdateStatus(r.Context(), apptID, domain.AppointmentStatus(req.Status), id.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	apptID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid appointment id")
		return
	}

	appt, err := s.deps.Booking.Get(r.Context(), apptID, id.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// handleListAppointments returns the caller's own agenda: bookings for
// patients, the consultation calendar for doctors, everything for admins.
func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	from, until, err := timeWindow(r, 30*24*time.Hour)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var appts []domain.Appointment
	switch id.Role {
	case domain.RoleAdmin:
		appts, err = s.deps.Booking.ListAll(r.Context(), from, until)
	case domain.RoleDoctor:
		appts, err = s.deps.Booking.ListForDoctor(r.Context(), id.UserID, from, until)
	default:
		appts, err = s.deps.Booking.ListForPatient(r.Context(), id.UserID, from, until)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentResponses(appts)})
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid doctor id")
		return
	}

	from, until, err := timeWindow(r, 7*24*time.Hour)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	slots, err := s.deps.Booking.AvailableSlots(r.Context(), doctorID, from, until)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotResponse{StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// timeWindow reads the from/to query parameters (RFC 3339), defaulting to
// [now, now+span).
func timeWindow(r *http.Request, span time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, until := now, now.Add(span)

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC 3339")
		}
		from = t.UTC()
		until = from.Add(span)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC 3339")
		}
		until = t.UTC()
	}
	return from, until, nil
}
