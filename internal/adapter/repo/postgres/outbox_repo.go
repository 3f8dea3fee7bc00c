package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stateset/commerce-core/internal/domain"
)

// OutboxRepo is the postgres-backed domain.OutboxStore (C3's persistence
// surface). IDs are ULIDs so that claiming "ORDER BY id" agrees with
// claiming "ORDER BY created_at", letting the worker's claim query use a
// single covering index.
type OutboxRepo struct{ Pool PgxPool }

// NewOutboxRepo constructs an OutboxRepo over the given pool.
func NewOutboxRepo(p PgxPool) *OutboxRepo { return &OutboxRepo{Pool: p} }

// Enqueue inserts a pending row inside the caller's transaction, so the
// outbox write commits atomically with the aggregate write that produced
// it (spec.md §4.3).
func (r *OutboxRepo) Enqueue(ctx domain.Context, tx domain.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	tracer := otel.Tracer("repo.outbox")
	ctx, span := tracer.Start(ctx, "outbox.Enqueue")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "outbox_events"))

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=outbox.enqueue.marshal: %w", err)
	}
	id := ulid.Make().String()
	now := time.Now().UTC()
	q := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, status, attempts,
	        available_at, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,0,$7,$7,$7)`
	if err := execOn(ctx, r.Pool, tx, q, id, aggregateType, aggregateID, eventType, raw, domain.OutboxPending, now); err != nil {
		return fmt.Errorf("op=outbox.enqueue: %w", err)
	}
	return nil
}

// Claim atomically claims up to n pending-and-due rows with
// SELECT ... FOR UPDATE SKIP LOCKED, so multiple outbox worker replicas can
// run concurrently without claiming the same row twice (spec.md §4.3, §5).
func (r *OutboxRepo) Claim(ctx domain.Context, n int) ([]domain.OutboxEvent, error) {
	tracer := otel.Tracer("repo.outbox")
	ctx, span := tracer.Start(ctx, "outbox.Claim")
	defer span.End()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("op=outbox.claim.begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	selectQ := `SELECT id FROM outbox_events
	            WHERE status = $1 AND available_at <= $2
	            ORDER BY id ASC
	            LIMIT $3
	            FOR UPDATE SKIP LOCKED`
	rows, err := tx.Query(ctx, selectQ, domain.OutboxPending, now, n)
	if err != nil {
		return nil, fmt.Errorf("op=outbox.claim.select: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("op=outbox.claim.scan_id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=outbox.claim.rows: %w", err)
	}
	if len(ids) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("op=outbox.claim.commit_empty: %w", err)
		}
		committed = true
		return nil, nil
	}

	updateQ := `UPDATE outbox_events SET status = $1, updated_at = $2 WHERE id = ANY($3)`
	if _, err := tx.Exec(ctx, updateQ, domain.OutboxProcessing, now, ids); err != nil {
		return nil, fmt.Errorf("op=outbox.claim.mark_processing: %w", err)
	}

	selectFullQ := `SELECT id, aggregate_type, aggregate_id, event_type, payload, status, attempts,
	        available_at, created_at, updated_at, processed_at, error_message
	      FROM outbox_events WHERE id = ANY($1) ORDER BY id ASC`
	full, err := tx.Query(ctx, selectFullQ, ids)
	if err != nil {
		return nil, fmt.Errorf("op=outbox.claim.select_full: %w", err)
	}
	var out []domain.OutboxEvent
	for full.Next() {
		var e domain.OutboxEvent
		if err := full.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.Status,
			&e.Attempts, &e.AvailableAt, &e.CreatedAt, &e.UpdatedAt, &e.ProcessedAt, &e.ErrorMessage); err != nil {
			full.Close()
			return nil, fmt.Errorf("op=outbox.claim.scan: %w", err)
		}
		out = append(out, e)
	}
	full.Close()
	if err := full.Err(); err != nil {
		return nil, fmt.Errorf("op=outbox.claim.rows_full: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("op=outbox.claim.commit: %w", err)
	}
	committed = true
	return out, nil
}

// MarkDelivered transitions a claimed row to delivered.
func (r *OutboxRepo) MarkDelivered(ctx domain.Context, id string) error {
	now := time.Now().UTC()
	q := `UPDATE outbox_events SET status = $2, processed_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.Pool.Exec(ctx, q, id, domain.OutboxDelivered, now); err != nil {
		return fmt.Errorf("op=outbox.mark_delivered: %w", err)
	}
	return nil
}

// MarkRetry reschedules a claimed row for a future attempt, or marks it
// failed (dead-lettered) when availableAt is nil, meaning the caller's
// retry schedule has exhausted the configured attempt budget.
func (r *OutboxRepo) MarkRetry(ctx domain.Context, id string, availableAt *domain.ScheduledRetry, errMsg string) error {
	now := time.Now().UTC()
	if availableAt == nil {
		q := `UPDATE outbox_events SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.Pool.Exec(ctx, q, id, domain.OutboxFailed, errMsg, now); err != nil {
			return fmt.Errorf("op=outbox.mark_retry.fail: %w", err)
		}
		return nil
	}
	q := `UPDATE outbox_events SET status = $2, attempts = attempts + 1, available_at = $3,
	        error_message = $4, updated_at = $5 WHERE id = $1`
	next := time.Unix(availableAt.AvailableAtUnix, 0).UTC()
	if _, err := r.Pool.Exec(ctx, q, id, domain.OutboxPending, next, errMsg, now); err != nil {
		return fmt.Errorf("op=outbox.mark_retry: %w", err)
	}
	return nil
}

var _ domain.OutboxStore = (*OutboxRepo)(nil)
