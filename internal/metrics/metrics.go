// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the collection interface used by the transport and worker
// layers.
type Recorder interface {
	RecordBooking()
	RecordBookingConflict()
	RecordReminderSent()
	RecordReminderFailure()
	RecordReportGenerated()
	RecordHTTPRequest(method, route string, statusCode int)
	RecordHTTPLatency(route string, duration time.Duration)
}

// Collector implements Recorder on top of a Prometheus registry.
type Collector struct {
	bookings         prometheus.Counter
	bookingConflicts prometheus.Counter
	remindersSent    prometheus.Counter
	reminderFails    prometheus.Counter
	reportsGenerated prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medibook_bookings_total",
			Help: "Total number of appointments booked.",
		}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medibook_booking_conflicts_total",
			Help: "Total number of booking attempts rejected for slot conflicts.",
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medibook_reminders_sent_total",
			Help: "Total number of appointment reminders delivered.",
		}),
		reminderFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medibook_reminder_failures_total",
			Help: "Total number of reminder deliveries that failed.",
		}),
		reportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medibook_reports_generated_total",
			Help: "Total number of monthly reports generated.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medibook_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medibook_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.bookings,
		c.bookingConflicts,
		c.remindersSent,
		c.reminderFails,
		c.reportsGenerated,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordBooking() {
	c.bookings.Inc()
}

func (c *Collector) RecordBookingConflict() {
	c.bookingConflicts.Inc()
}

func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

func (c *Collector) RecordReminderFailure() {
	c.reminderFails.Inc()
}

func (c *Collector) RecordReportGenerated() {
	c.reportsGenerated.Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordHTTPLatency(route string, duration time.Duration) {
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Noop is a Recorder that discards everything. Used in tests.
type Noop struct{}

func (Noop) RecordBooking()                                         {}
func (Noop) RecordBookingConflict()                                 {}
func (Noop) RecordReminderSent()                                    {}
func (Noop) RecordReminderFailure()                                 {}
func (Noop) RecordReportGenerated()                                 {}
func (Noop) RecordHTTPRequest(method, route string, statusCode int) {}
func (Noop) RecordHTTPLatency(route string, duration time.Duration) {}
