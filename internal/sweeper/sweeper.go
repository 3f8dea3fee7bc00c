// Package sweeper implements the reservation-expiry sweeper spec.md §5
// describes as a "scope-external expiry sweeper" whose "contract is just to
// emit ReleaseReservation commands", plus the periodic low-stock scan,
// both as hibiken/asynq periodic tasks — grounded on the teacher's
// internal/adapter/queue/asynq (ParseRedisURI / NewServer / ServeMux /
// NewScheduler wiring) rather than a hand-rolled ticker loop.
package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stateset/commerce-core/internal/domain"
	"github.com/stateset/commerce-core/internal/inventory"
)

// Task type names registered with asynq.
const (
	TaskSweepReservations = "inventory:sweep_reservations"
	TaskScanLowStock      = "inventory:scan_low_stock"
)

// NewScheduler builds the asynq.Scheduler that enqueues both periodic tasks
// on the given cron schedules (e.g. "@every 1m"), mirroring config.SweeperInterval.
func NewScheduler(redisURL, reservationCron, lowStockCron string) (*asynq.Scheduler, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=sweeper.new_scheduler: %w", err)
	}
	scheduler := asynq.NewScheduler(opt, nil)

	if _, err := scheduler.Register(reservationCron, asynq.NewTask(TaskSweepReservations, nil)); err != nil {
		return nil, fmt.Errorf("op=sweeper.new_scheduler: %w", err)
	}
	if _, err := scheduler.Register(lowStockCron, asynq.NewTask(TaskScanLowStock, nil)); err != nil {
		return nil, fmt.Errorf("op=sweeper.new_scheduler: %w", err)
	}
	return scheduler, nil
}

// lowStockPayload carries the configured alert threshold to the handler.
type lowStockPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewWorker constructs the asynq server + handlers that process the two
// periodic tasks. inv.Release is called once per expired, still-active
// reservation (spec.md §5's "emit ReleaseReservation commands"); the
// low-stock task delegates straight to inventory.Service.ScanLowStock.
func NewWorker(redisURL string, inv *inventory.Service, repo domain.InventoryRepository, bus domain.EventBus, lowStockThreshold int64) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=sweeper.new_worker: %w", err)
	}
	srv := asynq.NewServer(opt, asynq.Config{Concurrency: 2})
	mux := asynq.NewServeMux()
	w := &Worker{server: srv, mux: mux}

	mux.HandleFunc(TaskSweepReservations, func(ctx context.Context, t *asynq.Task) error {
		return sweepReservations(ctx, inv, repo)
	})
	mux.HandleFunc(TaskScanLowStock, func(ctx context.Context, t *asynq.Task) error {
		threshold := lowStockThreshold
		var p lowStockPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &p); err == nil && p.Threshold > 0 {
				threshold = p.Threshold
			}
		}
		return inv.ScanLowStock(ctx, bus, threshold)
	})

	return w, nil
}

// Worker wraps the asynq server processing sweeper tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// Start begins processing tasks until Stop is called.
func (w *Worker) Start(_ context.Context) error { return w.server.Start(w.mux) }

// Stop gracefully shuts the worker server down.
func (w *Worker) Stop() { w.server.Shutdown() }

func sweepReservations(ctx context.Context, inv *inventory.Service, repo domain.InventoryRepository) error {
	expired, err := repo.ListExpiringReservations(ctx, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("op=sweeper.sweep_reservations: %w", err)
	}

	released := 0
	for _, res := range expired {
		if res.State != domain.ReservationActive {
			continue
		}
		err := inv.Release(ctx, inventory.ReleaseInput{
			InventoryItemID: res.InventoryItemID,
			LocationID:      res.LocationID,
			Quantity:        res.Quantity,
			ReferenceID:     res.ReferenceID,
		})
		if err != nil {
			slog.Error("reservation sweep failed to release reservation",
				slog.String("reservation_id", res.ReservationID), slog.Any("error", err))
			continue
		}
		released++
	}

	if len(expired) > 0 {
		slog.Info("reservation sweep complete", slog.Int("scanned", len(expired)), slog.Int("released", released))
	}
	return nil
}
