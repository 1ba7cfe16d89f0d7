// Package http exposes the booking backend over a JSON REST surface.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/metrics"
	"medibook/backend/internal/service/accounts"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/service/schedules"
)

// AccountService is the slice of the accounts service the handlers need.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (domain.User, error)
	Authenticate(ctx context.Context, email, password string) (domain.User, string, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

type BookingService interface {
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	Get(ctx context.Context, appointmentID, actorID uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID, actorID uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, appointmentID, actorID uuid.UUID, newStart time.Time, newDurationMinutes int) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, newStatus domain.AppointmentStatus, actorID uuid.UUID) (domain.Appointment, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, until time.Time) ([]domain.FreeSlot, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	ListAll(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

type ScheduleService interface {
	Upsert(ctx context.Context, in schedules.UpsertInput) (domain.DoctorSchedule, []domain.ScheduleWindow, error)
	Get(ctx context.Context, doctorID uuid.UUID) (domain.DoctorSchedule, []domain.ScheduleWindow, error)
}

type LocationService interface {
	ListDivisions(ctx context.Context) ([]domain.Division, error)
	ListDistricts(ctx context.Context, divisionID uuid.UUID) ([]domain.District, error)
	ListThanas(ctx context.Context, districtID uuid.UUID) ([]domain.Thana, error)
}

type ReportService interface {
	DoctorMonthly(ctx context.Context, doctorID uuid.UUID, year, month int) (domain.MonthlyReport, error)
}

type Config struct {
	JWTSecret      string
	RequestTimeout time.Duration
	RateRPS        float64
	RateBurst      int
}

type Deps struct {
	Accounts  AccountService
	Booking   BookingService
	Schedules ScheduleService
	Locations LocationService
	Reports   ReportService

	Recorder       metrics.Recorder
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

type Server struct {
	router   chi.Router
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	recorder metrics.Recorder
}

func NewServer(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Noop{}
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With(slog.String("component", "http")),
		recorder: deps.Recorder,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger, s.recorder))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.MetricsHandler)
	}

	limiter := newRateLimiter(s.cfg.RateRPS, s.cfg.RateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes carry no identity yet, so they rate-limit by
		// remote address.
		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)

			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)

			r.Route("/locations", func(r chi.Router) {
				r.Get("/divisions", s.handleListDivisions)
				r.Get("/divisions/{id}/districts", s.handleListDistricts)
				r.Get("/districts/{id}/thanas", s.handleListThanas)
			})

			r.Get("/doctors/{id}/schedule", s.handleGetSchedule)
			r.Get("/doctors/{id}/slots", s.handleAvailableSlots)
		})

		r.Group(func(r chi.Router) {
			// Limit after authentication so each user gets their own
			// bucket instead of sharing one per NAT address.
			r.Use(authenticate(s.cfg.JWTSecret))
			r.Use(limiter.middleware)

			r.Get("/users/me", s.handleMe)
			r.Get("/appointments", s.handleListAppointments)
			r.Get("/appointments/{id}", s.handleGetAppointment)
			r.Post("/appointments", s.handleBook)
			r.Post("/appointments/{id}/cancel", s.handleCancel)
			r.Post("/appointments/{id}/reschedule", s.handleReschedule)
			r.Post("/appointments/{id}/status", s.handleUpdateStatus)

			r.With(requireRole(domain.RoleDoctor)).
				Put("/doctors/me/schedule", s.handleUpsertSchedule)

			r.With(requireRole(domain.RoleDoctor, domain.RoleAdmin)).
				Get("/reports/doctors/{id}/monthly", s.handleMonthlyReport)
		})
	})

	return r
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
