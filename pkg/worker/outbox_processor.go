package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	"github.com/jwalitptl/dentalclinic-api/pkg/messaging"
	"github.com/jwalitptl/dentalclinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxAttempts is the number of publish attempts before an event is failed.
	MaxAttempts int
	// RetryDelay is the base backoff, doubled after every failed attempt.
	RetryDelay time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("BatchSize must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be greater than 0")
	case c.MaxAttempts <= 0:
		return errors.New("MaxAttempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("RetryDelay must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays events written by repositories to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger.With().Str("component", "outbox").Logger(),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Msg("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and publishes them. The claim
// and the status updates share one transaction, so a crashed relay releases
// its rows.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	err := p.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := p.repo.GetPendingEventsWithLock(ctx, tx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "error").Inc()
			return err
		}
		p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "success").Inc()

		for _, event := range events {
			if err := p.processEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to process outbox batch: %w", err)
	}

	if n, err := p.repo.CountPending(ctx); err == nil {
		p.metrics.OutboxQueueSize.Set(float64(n))
	}
	return nil
}

// processEvent only returns errors from the status update. Publish failures
// are recorded on the event.
func (p *OutboxProcessor) processEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	log := p.logger.With().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Logger()

	pubErr := p.broker.Publish(ctx, event.EventType, event.Payload)
	if pubErr == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil)
	}

	msg := pubErr.Error()
	attempt := event.RetryCount + 1
	if attempt >= p.config.MaxAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		log.Error().Err(pubErr).Int("attempt", attempt).Msg("Giving up on event")
		return p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusFailed, &msg, nil)
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(Backoff(p.config.RetryDelay, event.RetryCount))
	log.Warn().Err(pubErr).Int("attempt", attempt).Time("retry_at", retryAt).Msg("Publish failed, will retry")
	return p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusRetry, &msg, &retryAt)
}

// Backoff returns base doubled once per previous retry, capped at one hour.
func Backoff(base time.Duration, retries int) time.Duration {
	const ceiling = time.Hour
	d := base
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}
