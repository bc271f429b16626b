package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/BorcilaVasile/medical-appointment-api/internal/email"
	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository/postgres"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/logger"
	redisbroker "github.com/BorcilaVasile/medical-appointment-api/pkg/messaging/redis"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/worker"
)

// workerConfig is environment-driven; the worker runs headless and has
// no use for the API's config file.
type workerConfig struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	ClaimTimeout  time.Duration `envconfig:"CLAIM_TIMEOUT" default:"5m"`
	Retention     time.Duration `envconfig:"RETENTION" default:"168h"`
	MetricsNS     string        `envconfig:"METRICS_NAMESPACE" default:"appointments_worker"`
	LogPretty     bool          `envconfig:"LOG_PRETTY" default:"false"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("outbox", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	lg := logger.NewLogger(&logger.Config{
		Level:  logger.InfoLevel,
		Pretty: cfg.LogPretty,
	})

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.RedisURL})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	var mailer email.Sender
	var lookup worker.RecipientLookup
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		lookup = contactLookup(db)
	}

	outboxRepo := postgres.NewOutboxRepository(db)
	m := metrics.NewMetrics(cfg.MetricsNS)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, mailer, lookup, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		ClaimTimeout:  cfg.ClaimTimeout,
		Retention:     cfg.Retention,
	}, lg, m)

	ctx, cancel := context.WithCancel(context.Background())
	go processor.Start(ctx)
	lg.Info("outbox worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
}

// contactLookup resolves a recipient to an email address through the
// contacts table, which the clinic directory sync keeps current.
func contactLookup(db *sqlx.DB) worker.RecipientLookup {
	return func(ctx context.Context, event *model.NotificationEvent) (string, bool) {
		var address string
		err := db.GetContext(ctx, &address,
			"SELECT email FROM contacts WHERE person_id = $1", event.RecipientID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				log.Warn().Err(err).Str("recipient_id", event.RecipientID.String()).Msg("contact lookup failed")
			}
			return "", false
		}
		return address, true
	}
}
