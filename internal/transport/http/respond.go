package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"medibook/backend/internal/service/accounts"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/service/reports"
	"medibook/backend/internal/service/schedules"
	"medibook/backend/internal/store"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps service errors onto the wire taxonomy. Unknown errors are
// logged and masked as a 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: "internal error"}})
		return
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: err.Error()}})
}

func classify(err error) (string, int) {
	var (
		bookingInvalid   *booking.ValidationError
		accountsInvalid  *accounts.ValidationError
		schedulesInvalid *schedules.ValidationError
		reportsInvalid   *reports.ValidationError
	)
	switch {
	case errors.As(err, &bookingInvalid),
		errors.As(err, &accountsInvalid),
		errors.As(err, &schedulesInvalid),
		errors.As(err, &reportsInvalid):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEmail):
		return "duplicate_email", http.StatusConflict
	case errors.Is(err, booking.ErrForbidden):
		return "forbidden", http.StatusForbidden
	case errors.Is(err, booking.ErrInvalidTransition):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, store.ErrConflict):
		return "slot_conflict", http.StatusConflict
	}
	return "internal", http.StatusInternalServerError
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{Code: "invalid_input", Message: message}})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
