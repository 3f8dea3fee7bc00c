// Package eventbus implements the in-process domain event bus (C2): a
// bounded-channel pub/sub distinct from the durable outbox (C3) and the
// Kafka/Redpanda sink, used for synchronous-ish in-process reactions to
// domain events (cache invalidation, metrics, log enrichment).
package eventbus

import (
	"log/slog"
	"sync"

	obsctx "github.com/stateset/commerce-core/internal/observability"

	"github.com/stateset/commerce-core/internal/domain"
)

// Bus is a single-writer-many-reader-order-preserving dispatcher: events
// sent to it are delivered to every subscribed handler, in send order,
// sequentially per handler. Send blocks when the internal buffer is full,
// applying backpressure to the caller (spec.md §4.2).
type Bus struct {
	events   chan busEvent
	done     chan struct{}
	mu       sync.RWMutex
	handlers []func(domain.Context, domain.Event)
	wg       sync.WaitGroup
}

type busEvent struct {
	ctx domain.Context
	evt domain.Event
}

// New constructs a Bus with the given channel buffer size and starts its
// dispatch loop.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	b := &Bus{
		events: make(chan busEvent, bufferSize),
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Subscribe registers handler to be invoked for every event sent after this
// call, in send order. Handlers run sequentially on the bus's single
// dispatch goroutine; a slow or blocking handler delays every later event
// and subscriber, so handlers must stay fast and non-blocking (spec.md
// §4.2's single-dispatcher design note).
func (b *Bus) Subscribe(handler func(domain.Context, domain.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Send enqueues event for dispatch, blocking if the buffer is full.
func (b *Bus) Send(ctx domain.Context, event domain.Event) error {
	select {
	case b.events <- busEvent{ctx: ctx, evt: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the dispatch loop after draining any buffered events.
func (b *Bus) Close() {
	close(b.events)
	b.wg.Wait()
}

func (b *Bus) loop() {
	defer b.wg.Done()
	for be := range b.events {
		b.dispatch(be)
	}
}

// dispatch invokes every subscribed handler for one event, in registration
// order. A handler panic or error is logged and does not stop dispatch to
// the remaining handlers or halt the bus (spec.md §4.2, §7 "never halts
// the command path").
func (b *Bus) dispatch(be busEvent) {
	b.mu.RLock()
	handlers := make([]func(domain.Context, domain.Event), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	lg := obsctx.LoggerFromContext(be.ctx)
	for _, h := range handlers {
		b.invoke(lg, h, be)
	}
}

func (b *Bus) invoke(lg *slog.Logger, h func(domain.Context, domain.Event), be busEvent) {
	defer func() {
		if r := recover(); r != nil {
			lg.Error("event handler panicked",
				slog.String("event_kind", string(be.evt.Kind())),
				slog.String("aggregate_id", be.evt.AggregateID()),
				slog.Any("panic", r))
		}
	}()
	h(be.ctx, be.evt)
}

var _ domain.EventBus = (*Bus)(nil)
