package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBooking()
	c.RecordBooking()
	c.RecordBookingConflict()
	c.RecordReminderSent()
	c.RecordReminderFailure()
	c.RecordReportGenerated()

	if got := counterValue(t, reg, "medibook_bookings_total"); got != 2 {
		t.Errorf("bookings_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "medibook_booking_conflicts_total"); got != 1 {
		t.Errorf("booking_conflicts_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "medibook_reminders_sent_total"); got != 1 {
		t.Errorf("reminders_sent_total = %v, want 1", got)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordBooking()
	c.RecordHTTPRequest(http.MethodPost, "/api/v1/appointments", http.StatusCreated)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "medibook_bookings_total") {
		t.Error("exposition should contain medibook_bookings_total")
	}
	if !strings.Contains(string(body), "medibook_http_requests_total") {
		t.Error("exposition should contain medibook_http_requests_total")
	}
}
