package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BorcilaVasile/medical-appointment-api/internal/email"
	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/logger"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/messaging"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// ClaimTimeout bounds how long a claimed event may sit in
	// processing before another poller may requeue it. Zero disables
	// requeueing.
	ClaimTimeout time.Duration
	// Retention bounds how long processed events are kept.
	Retention time.Duration
}

// OutboxProcessor drains pending notification events: each one is
// published to the message broker and, when an email sender is wired,
// mirrored as an email. Delivery beyond that is an external concern.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	mailer  email.Sender
	lookup  RecipientLookup
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// RecipientLookup maps a recipient id to an email address. Supplied by
// the embedding binary since user records live outside this service.
type RecipientLookup func(ctx context.Context, event *model.NotificationEvent) (string, bool)

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	mailer email.Sender,
	lookup RecipientLookup,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		mailer:  mailer,
		lookup:  lookup,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process events")
			}
			if p.config.ClaimTimeout > 0 {
				cutoff := time.Now().Add(-p.config.ClaimTimeout)
				if _, err := p.repo.RequeueStale(ctx, cutoff); err != nil {
					p.logger.Error(err, "failed to requeue stale events")
				}
			}
			if p.config.Retention > 0 {
				cutoff := time.Now().Add(-p.config.Retention)
				if _, err := p.repo.DeleteProcessedBefore(ctx, cutoff); err != nil {
					p.logger.Error(err, "failed to prune processed events")
				}
			}
		}
	}
}

func (p *OutboxProcessor) ProcessEvents(ctx context.Context) error {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, event.EventType, event.Payload)
	})

	if err != nil {
		if p.metrics != nil {
			p.metrics.OutboxEventsFailed.Inc()
		}
		if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); updateErr != nil {
			p.logger.Error(updateErr, "failed to update event status")
		}
		return err
	}

	p.sendEmailCopy(ctx, event)

	if p.metrics != nil {
		p.metrics.OutboxEventsProcessed.Inc()
	}
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// sendEmailCopy mirrors the notification as an email. Best effort: the
// broker publish already succeeded, so email failures only log.
func (p *OutboxProcessor) sendEmailCopy(ctx context.Context, event *model.OutboxEvent) {
	if p.mailer == nil || p.lookup == nil {
		return
	}

	var notif model.NotificationEvent
	if err := json.Unmarshal(event.Payload, &notif); err != nil {
		p.logger.Error(err, "failed to decode notification payload", "event_id", event.ID.String())
		return
	}

	addr, ok := p.lookup(ctx, &notif)
	if !ok {
		return
	}

	subject := fmt.Sprintf("Appointment %s", notif.Type)
	if err := p.mailer.Send(ctx, addr, subject, notif.Message); err != nil {
		p.logger.Error(err, "failed to send notification email",
			"event_id", event.ID.String(),
			"recipient_id", notif.RecipientID.String())
	}
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
