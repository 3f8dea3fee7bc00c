package domain

import "context"

// Context is a type alias to stdlib context.Context for convenience across
// layers, matching the teacher's domain.Context convention.
type Context = context.Context

// Tx is an opaque handle to an in-flight transaction, passed by the
// persistence gateway into repository methods so that every read/write in a
// command runs inside the same transaction (spec.md §4.1, §4.4 step 2).
type Tx interface{}

// Gateway is the persistence gateway (C1): the only component that speaks
// SQL. It runs fn inside a transaction scope and commits/rolls back as a
// single unit.
type Gateway interface {
	// WithTx runs fn inside a transaction; fn's returned error rolls the
	// transaction back, nil commits it.
	WithTx(ctx Context, fn func(ctx Context, tx Tx) error) error
	// LockRow acquires a row-level (or advisory, on engines without row
	// locks) lock on the given table/key for the lifetime of tx.
	LockRow(ctx Context, tx Tx, table string, key ...any) error
}

// EventBus is the in-process pub/sub (C2).
type EventBus interface {
	// Send enqueues event for dispatch; blocks when the buffer is full
	// (backpressure), per spec.md §4.2.
	Send(ctx Context, event Event) error
	// Subscribe registers a handler invoked for every event, in send order,
	// sequentially. Handler errors are logged and do not halt dispatch.
	Subscribe(handler func(Context, Event))
}

// OutboxStore is the durable outbox (C3)'s persistence surface.
type OutboxStore interface {
	// Enqueue inserts a pending row inside the caller's transaction,
	// guaranteeing atomicity with the aggregate write (spec.md §4.3).
	Enqueue(ctx Context, tx Tx, aggregateType, aggregateID, eventType string, payload any) error
	// Claim atomically claims up to n pending-and-due rows, ordered by
	// CreatedAt ascending, marking them processing.
	Claim(ctx Context, n int) ([]OutboxEvent, error)
	// MarkDelivered transitions a claimed row to delivered.
	MarkDelivered(ctx Context, id string) error
	// MarkRetry reschedules a claimed row for a future attempt, or marks it
	// failed if attempts are exhausted.
	MarkRetry(ctx Context, id string, availableAt *ScheduledRetry, errMsg string) error
}

// ScheduledRetry carries the computed next-attempt time for a retry, or nil
// to signal the row should be marked failed (max attempts exceeded).
type ScheduledRetry struct {
	AvailableAtUnix int64
}

// Sink is the outbox worker's downstream transport (Kafka/Redpanda),
// distinct from the in-process EventBus (spec.md §1 "emitting domain events
// to downstream consumers").
type Sink interface {
	Publish(ctx Context, aggregateType, aggregateID, eventType string, payload []byte) error
}

// Cache is the optional write-through cache collaborator from spec.md §9:
// invalidated by aggregate id on commit; failures never fail the command.
type Cache interface {
	Get(ctx Context, key string) ([]byte, bool, error)
	Set(ctx Context, key string, value []byte) error
	Invalidate(ctx Context, key string) error
}

// Command describes a state-changing business operation as one value
// (spec.md §4.4, §9 "dynamic polymorphism over command types"). No type in
// this module implements it: the services run each operation through
// command.Run with a validate func and a transactional body.
type Command interface {
	// Name identifies the command for metrics/logging, e.g. "create_order".
	Name() string
	// Validate performs field-level validation; ValidationError on failure.
	Validate() error
	// Execute performs the transactional work and returns a result value or
	// a taxonomy error from §7.
	Execute(ctx Context) (any, error)
}
