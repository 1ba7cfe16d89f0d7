package http

import (
	"net/http"
	"strconv"

	"medibook/backend/internal/domain"
)

// handleMonthlyReport serves a doctor's monthly summary. Doctors see only
// their own; admins see any.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	doctorID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid doctor id")
		return
	}
	if id.Role == domain.RoleDoctor && id.UserID != doctorID {
		writeJSON(w, http.StatusForbidden, errorEnvelope{Error: errorBody{Code: "forbidden", Message: "doctors may only view their own reports"}})
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		badRequest(w, "year must be an integer")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		badRequest(w, "month must be an integer")
		return
	}

	report, err := s.deps.Reports.DoctorMonthly(r.Context(), doctorID, year, month)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}
