package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	appointmentHandler "github.com/BorcilaVasile/medical-appointment-api/internal/handler/appointment"
	healthHandler "github.com/BorcilaVasile/medical-appointment-api/internal/handler/health"
	unavailabilityHandler "github.com/BorcilaVasile/medical-appointment-api/internal/handler/unavailability"

	"github.com/BorcilaVasile/medical-appointment-api/internal/config"
	"github.com/BorcilaVasile/medical-appointment-api/internal/middleware"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository/postgres"
	"github.com/BorcilaVasile/medical-appointment-api/internal/router"
	"github.com/BorcilaVasile/medical-appointment-api/internal/schedule"
	availabilityService "github.com/BorcilaVasile/medical-appointment-api/internal/service/availability"
	bookingService "github.com/BorcilaVasile/medical-appointment-api/internal/service/booking"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/notification"
	unavailabilityService "github.com/BorcilaVasile/medical-appointment-api/internal/service/unavailability"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/clock"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/logger"
	redisbroker "github.com/BorcilaVasile/medical-appointment-api/pkg/messaging/redis"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.NewLogger(&logger.Config{
		Level:  logger.InfoLevel,
		Pretty: cfg.LogPretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	unavailabilityRepo := postgres.NewUnavailabilityRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	weekStart, err := schedule.ParseWeekday(cfg.Schedule.WeekStart)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule configuration")
	}
	grid, err := schedule.NewGrid(schedule.Config{
		DayStart:     cfg.Schedule.DayStart,
		DayEnd:       cfg.Schedule.DayEnd,
		SlotInterval: cfg.Schedule.SlotMinutes,
		WeekStart:    weekStart,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule configuration")
	}

	clk := clock.New()
	m := metrics.NewMetrics(cfg.MetricsNS)
	notifier := notification.NewEmitter(outboxRepo)

	availabilitySvc := availabilityService.NewService(
		appointmentRepo,
		unavailabilityRepo,
		grid,
		clk,
		availabilityService.Config{
			BookingLead:  cfg.Booking.BookingLead,
			MaxRangeDays: cfg.Booking.MaxRangeDays,
		},
		m,
	)
	bookingSvc := bookingService.NewService(
		appointmentRepo,
		availabilitySvc,
		grid,
		notifier,
		clk,
		bookingService.Config{
			AutoConfirm:       cfg.Booking.AutoConfirm,
			BookingLead:       cfg.Booking.BookingLead,
			PatientCancelLead: cfg.Booking.PatientCancelLead,
			DoctorCancelLead:  cfg.Booking.DoctorCancelLead,
		},
		lg,
		m,
	)
	unavailabilitySvc := unavailabilityService.NewService(unavailabilityRepo, appointmentRepo, grid, availabilitySvc, m)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authMiddleware,
		appointmentHandler.NewHandler(bookingSvc, availabilitySvc),
		unavailabilityHandler.NewHandler(unavailabilitySvc),
		healthHandler.NewHandler(db),
		m,
		router.Config{
			RateLimitRPS:   100,
			RateLimitBurst: 200,
			CORS:           middleware.DefaultCORSConfig(),
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Drain notification events in-process. The dedicated worker binary
	// does the same with an email mirror; each poller claims its batch
	// atomically, so running both never delivers an event twice.
	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()
	processor := worker.NewOutboxProcessor(outboxRepo, broker, nil, nil, worker.OutboxProcessorConfig{
		BatchSize:     100,
		PollInterval:  5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		ClaimTimeout:  5 * time.Minute,
		Retention:     7 * 24 * time.Hour,
	}, lg, m)
	go processor.Start(processorCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	lg.Info(fmt.Sprintf("listening on :%d", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopProcessor()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
