// Package command implements the uniform execution choreography every
// state-changing operation goes through (C4, spec.md §4.4): validate, run
// inside a transaction, enqueue durable outbox events, commit, publish on
// the in-process bus, and record metrics/logs — so that every concrete
// command in internal/order, internal/inventory, internal/workorder,
// internal/asn, internal/returns, and internal/warranty only has to supply
// its own validation and its own transactional body.
package command

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stateset/commerce-core/internal/adapter/observability"
	obsctx "github.com/stateset/commerce-core/internal/observability"
	"github.com/stateset/commerce-core/internal/domain"
)

var (
	validateOnce sync.Once
	vld          *validator.Validate
)

// Validator returns the process-wide go-playground/validator instance,
// lazily constructed (mirrors the teacher's httpserver getValidator()).
func Validator() *validator.Validate {
	validateOnce.Do(func() { vld = validator.New() })
	return vld
}

// ValidateStruct runs struct-tag validation and translates
// validator.ValidationErrors into domain.ValidationError, field-qualified,
// per spec.md §4.4 step 1.
func ValidateStruct(v any) error {
	if err := Validator().Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return domain.NewValidationError("_", err.Error())
		}
		fe := make([]domain.FieldError, 0, len(verrs))
		for _, e := range verrs {
			fe = append(fe, domain.FieldError{Field: e.Field(), Message: e.Tag()})
		}
		return &domain.ValidationError{Fields: fe}
	}
	return nil
}

// OutboxMessage is one event a command body wants durably enqueued in the
// same transaction as its aggregate write (spec.md §4.4 step 3).
type OutboxMessage struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       any
}

// Deps bundles the collaborators every command needs: the persistence
// gateway, the durable outbox, and the in-process event bus.
type Deps struct {
	Gateway domain.Gateway
	Outbox  domain.OutboxStore
	Bus     domain.EventBus
}

// Body is a command's transactional logic: it mutates the aggregate through
// tx, returns a result value, the outbox rows to enqueue, and the typed
// events to publish on C2 after commit.
type Body func(ctx domain.Context, tx domain.Tx) (result any, outbox []OutboxMessage, events []domain.Event, err error)

// Run executes the full C4 choreography for one command invocation.
//
//  1. validate() is called before any I/O; a non-nil error increments the
//     command's failure counter with reason=validation_error and returns.
//  2. body runs inside a single gateway transaction.
//  3. Every OutboxMessage body returns is enqueued inside that same
//     transaction, so it commits atomically with the aggregate write.
//  4. On commit, every domain.Event body returns is published on the bus.
//     A publish failure is logged but never fails the command — the
//     outbox row is already durable (spec.md §4.4 step 4).
//  5. Every outcome is counted and logged with the command name. The
//     success and failure log records do not carry the aggregate id; only
//     a post-commit publish failure logs the event's aggregate id.
func Run(ctx domain.Context, deps Deps, name string, validate func() error, body Body) (any, error) {
	start := time.Now()
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("command", name))

	if err := validate(); err != nil {
		observability.RecordCommand(name, time.Since(start), err, string(domain.ReasonValidationError))
		lg.Error("command validation failed", slog.Any("error", err))
		return nil, err
	}

	var (
		result    any
		toPublish []domain.Event
	)
	txErr := deps.Gateway.WithTx(ctx, func(ctx domain.Context, tx domain.Tx) error {
		res, outbox, events, err := body(ctx, tx)
		if err != nil {
			return err
		}
		for _, m := range outbox {
			if err := deps.Outbox.Enqueue(ctx, tx, m.AggregateType, m.AggregateID, m.EventType, m.Payload); err != nil {
				return err
			}
		}
		result = res
		toPublish = events
		return nil
	})

	if txErr != nil {
		reason := domain.ClassifyFailure(txErr)
		observability.RecordCommand(name, time.Since(start), txErr, string(reason))
		lg.Error("command failed", slog.String("reason", string(reason)), slog.Any("error", txErr))
		return nil, txErr
	}

	observability.RecordCommand(name, time.Since(start), nil, "")
	lg.Info("command succeeded")

	for _, e := range toPublish {
		if err := deps.Bus.Send(ctx, e); err != nil {
			lg.Warn("event bus publish failed after commit",
				slog.String("event_kind", string(e.Kind())),
				slog.String("aggregate_id", e.AggregateID()),
				slog.Any("error", err))
		}
	}

	return result, nil
}
