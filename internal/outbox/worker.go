// Package outbox implements the transactional outbox worker (C3): it claims
// durable rows enqueued by internal/command inside the same transaction as
// the aggregate write, publishes each one on the in-process event bus (C2)
// and the downstream Sink, then moves the row to a terminal or retry state.
package outbox

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stateset/commerce-core/internal/adapter/observability"
	"github.com/stateset/commerce-core/internal/domain"
)

// Worker is the outbox's claim-and-dispatch loop.
type Worker struct {
	store       domain.OutboxStore
	bus         domain.EventBus
	sink        domain.Sink
	batchSize   int
	pollEvery   time.Duration
	maxAttempts int
	baseBackoff time.Duration
	jitter      time.Duration
	logger      *slog.Logger
}

// Config configures a Worker; zero values fall back to spec.md §4.3 defaults.
type Config struct {
	BatchSize   int
	PollEvery   time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      time.Duration
}

// New constructs a Worker. bus may be nil (publishing on C2 is skipped, only
// the Sink is used) for deployments that run the worker without an
// in-process subscriber, though the default wiring always supplies one.
func New(store domain.OutboxStore, bus domain.EventBus, sink domain.Sink, cfg Config, logger *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 500 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:       store,
		bus:         bus,
		sink:        sink,
		batchSize:   cfg.BatchSize,
		pollEvery:   cfg.PollEvery,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		jitter:      cfg.Jitter,
		logger:      logger,
	}
}

// Run polls and dispatches claimed rows until ctx is cancelled.
func (w *Worker) Run(ctx domain.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce claims one batch and dispatches it; the package's tests call it
// for deterministic single-iteration control instead of waiting on the ticker.
func (w *Worker) runOnce(ctx domain.Context) {
	events, err := w.store.Claim(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("outbox claim failed", slog.Any("error", err))
		return
	}
	for _, e := range events {
		w.dispatch(ctx, e)
	}
}

func (w *Worker) dispatch(ctx domain.Context, row domain.OutboxEvent) {
	if err := w.publish(ctx, row); err != nil {
		w.retry(ctx, row, err)
		return
	}
	if err := w.store.MarkDelivered(ctx, row.ID); err != nil {
		w.logger.Error("outbox mark_delivered failed",
			slog.String("outbox_id", row.ID), slog.Any("error", err))
		return
	}
	observability.RecordOutboxDelivered(row.EventType)
	w.logger.Info("outbox event delivered",
		slog.String("outbox_id", row.ID),
		slog.String("aggregate_type", row.AggregateType),
		slog.String("aggregate_id", row.AggregateID),
		slog.String("event_type", row.EventType))
}

// publish maps the row to a typed event and publishes it on both C2 and the
// Sink, matching spec.md §4.3 step 2's "publish on C2" and the PURPOSE's
// "emitting domain events to downstream consumers" (SPEC_FULL.md §3/§5).
// Either transport failing is a publish failure: the row is retried, not
// partially marked delivered.
func (w *Worker) publish(ctx domain.Context, row domain.OutboxEvent) error {
	if w.bus != nil {
		evt, err := toDomainEvent(row.AggregateID, row.EventType, row.Payload)
		if err != nil {
			return err
		}
		if err := w.bus.Send(ctx, evt); err != nil {
			return err
		}
	}
	if w.sink != nil {
		if err := w.sink.Publish(ctx, row.AggregateType, row.AggregateID, row.EventType, row.Payload); err != nil {
			return err
		}
	}
	return nil
}

// retry computes the next backoff (spec.md §4.3 step 4) and either
// reschedules the row or dead-letters it once attempts are exhausted.
func (w *Worker) retry(ctx domain.Context, row domain.OutboxEvent, cause error) {
	if row.Attempts >= w.maxAttempts {
		if err := w.store.MarkRetry(ctx, row.ID, nil, "max attempts exceeded"); err != nil {
			w.logger.Error("outbox dead_letter write failed",
				slog.String("outbox_id", row.ID), slog.Any("error", err))
			return
		}
		observability.RecordOutboxDeadLettered(row.EventType)
		w.logger.Error("outbox event dead-lettered",
			slog.String("outbox_id", row.ID),
			slog.String("event_type", row.EventType),
			slog.Int("attempts", row.Attempts),
			slog.Any("cause", cause))
		return
	}

	delay := w.backoffDelay(row.Attempts)
	next := &domain.ScheduledRetry{AvailableAtUnix: time.Now().Add(delay).Unix()}
	if err := w.store.MarkRetry(ctx, row.ID, next, cause.Error()); err != nil {
		w.logger.Error("outbox retry write failed",
			slog.String("outbox_id", row.ID), slog.Any("error", err))
		return
	}
	observability.RecordOutboxRetry(row.EventType)
	w.logger.Warn("outbox event scheduled for retry",
		slog.String("outbox_id", row.ID),
		slog.String("event_type", row.EventType),
		slog.Int("attempts", row.Attempts),
		slog.Duration("delay", delay),
		slog.Any("cause", cause))
}

// backoffDelay computes base_backoff*2^attempts plus jitter, driving
// cenkalti/backoff/v4's ExponentialBackOff sequence generator rather than
// hand-rolling 2^attempts (SPEC_FULL.md §3 DOMAIN STACK). Randomization is
// disabled on the generator itself; jitter is added separately so its
// window is governed by OutboxJitterMillis rather than a randomization
// factor of the base interval.
func (w *Worker) backoffDelay(attempts int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.baseBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.Reset()

	var delay time.Duration
	for i := 0; i <= attempts; i++ {
		delay = eb.NextBackOff()
	}
	if w.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(w.jitter)))
	}
	return delay
}
