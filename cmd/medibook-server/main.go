package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"medibook/backend/internal/config"
	"medibook/backend/internal/metrics"
	"medibook/backend/internal/notify"
	"medibook/backend/internal/service/accounts"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/service/locations"
	"medibook/backend/internal/service/reports"
	"medibook/backend/internal/service/schedules"
	"medibook/backend/internal/store/postgres"
	httpTransport "medibook/backend/internal/transport/http"
	"medibook/backend/internal/worker/monthly"
	"medibook/backend/internal/worker/reminder"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "medibook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		log.Error("MEDIBOOK_JWT_SECRET must be set")
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "medibook-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("http_addr", cfg.HTTPAddr), slog.String("log_level", cfg.LogLevel))

	log.Info("running migrations", databaseLogArgs(cfg.DatabaseURL)...)
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Error("migrations failed", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)

	users := postgres.NewUserRepo(db)
	bookings := postgres.NewBookingRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	locationRepo := postgres.NewLocationRepo(db)
	reportRepo := postgres.NewReportRepo(db)

	accountSvc := accounts.NewService(users, accounts.Config{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	})
	bookingSvc := booking.NewService(bookings, users, booking.Policy{AutoConfirm: cfg.BookingAutoConfirm})
	scheduleSvc := schedules.NewService(scheduleRepo, users)
	locationSvc := locations.NewService(locationRepo)
	reportSvc := reports.NewService(reportRepo, users)

	provider := notify.New(notify.Config{
		Kind:         cfg.NotifyProvider,
		WebhookURL:   cfg.NotifyWebhookURL,
		WebhookToken: cfg.NotifyWebhookToken,
	}, log.With(slog.String("component", "notify")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminderJob := reminder.NewJob(bookings, users, provider, recorder, log.With(slog.String("component", "reminder")))
	reminderJob.Lead = cfg.ReminderLead
	go reminderJob.Start(ctx, cfg.ReminderInterval)

	monthlyJob := monthly.NewJob(users, reportRepo, reportSvc, provider, recorder, log.With(slog.String("component", "monthly")))
	go monthlyJob.Start(ctx, cfg.MonthlyInterval)

	handler := httpTransport.NewServer(httpTransport.Config{
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		RateRPS:        cfg.RateRPS,
		RateBurst:      cfg.RateBurst,
	}, httpTransport.Deps{
		Accounts:       accountSvc,
		Booking:        bookingSvc,
		Schedules:      scheduleSvc,
		Locations:      locationSvc,
		Reports:        reportSvc,
		Recorder:       recorder,
		MetricsHandler: metrics.Handler(registry),
		Logger:         log,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, server, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, s *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = s.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
