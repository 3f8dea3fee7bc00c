package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stateset/commerce-core/internal/domain"
)

// WorkOrderRepo is the postgres-backed domain.WorkOrderRepository (C7's
// collaborator). Updates are guarded by an optimistic-lock check against
// the row's version column (spec.md §4.7).
type WorkOrderRepo struct{ Pool PgxPool }

// NewWorkOrderRepo constructs a WorkOrderRepo over the given pool.
func NewWorkOrderRepo(p PgxPool) *WorkOrderRepo { return &WorkOrderRepo{Pool: p} }

func (r *WorkOrderRepo) Create(ctx domain.Context, tx domain.Tx, wo domain.WorkOrder) error {
	tracer := otel.Tracer("repo.workorders")
	ctx, span := tracer.Start(ctx, "workorders.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "work_orders"))

	if wo.WorkOrderID == "" {
		wo.WorkOrderID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO work_orders (id, bom_id, title, description, priority, status, assignee_id, due_date,
	        estimated_hours, actual_hours, version, scheduled_at, started_at, yielded_at, completed_at, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1,$11,$12,$13,$14,$15,$16)`
	if err := r.exec(ctx, tx, q, wo.WorkOrderID, wo.BOMID, wo.Title, wo.Description, wo.Priority, wo.Status,
		wo.AssigneeID, wo.DueDate, wo.EstimatedHours, wo.ActualHours, wo.ScheduledAt, wo.StartedAt, wo.YieldedAt,
		wo.CompletedAt, now, now); err != nil {
		return fmt.Errorf("op=workorder.create: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) Get(ctx domain.Context, workOrderID string) (domain.WorkOrder, error) {
	return r.get(ctx, nil, workOrderID)
}

func (r *WorkOrderRepo) GetForUpdate(ctx domain.Context, tx domain.Tx, workOrderID string) (domain.WorkOrder, error) {
	return r.get(ctx, tx, workOrderID)
}

func (r *WorkOrderRepo) get(ctx domain.Context, tx domain.Tx, workOrderID string) (domain.WorkOrder, error) {
	q := `SELECT id, bom_id, title, description, priority, status, assignee_id, due_date,
	        estimated_hours, actual_hours, version, scheduled_at, started_at, yielded_at, completed_at, created_at, updated_at
	      FROM work_orders WHERE id = $1`
	row, err := r.queryRow(ctx, tx, q, workOrderID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	var wo domain.WorkOrder
	if err := row.Scan(&wo.WorkOrderID, &wo.BOMID, &wo.Title, &wo.Description, &wo.Priority, &wo.Status,
		&wo.AssigneeID, &wo.DueDate, &wo.EstimatedHours, &wo.ActualHours, &wo.Version, &wo.ScheduledAt,
		&wo.StartedAt, &wo.YieldedAt, &wo.CompletedAt, &wo.CreatedAt, &wo.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkOrder{}, fmt.Errorf("op=workorder.get: %w", domain.ErrNotFound)
		}
		return domain.WorkOrder{}, fmt.Errorf("op=workorder.get: %w", err)
	}
	return wo, nil
}

// Update writes wo's mutable fields and bumps version, but only if the
// row's current version still equals expectedVersion. A zero rows-affected
// result means someone else committed first: domain.ErrConcurrentModification
// (spec.md §4.7, §7).
func (r *WorkOrderRepo) Update(ctx domain.Context, tx domain.Tx, wo domain.WorkOrder, expectedVersion int64) error {
	q := `UPDATE work_orders SET title = $3, description = $4, priority = $5, status = $6, assignee_id = $7,
	        due_date = $8, estimated_hours = $9, actual_hours = $10, version = version + 1,
	        scheduled_at = $11, started_at = $12, yielded_at = $13, completed_at = $14, updated_at = $15
	      WHERE id = $1 AND version = $2`
	rows, err := execAffected(ctx, r.Pool, tx, q, wo.WorkOrderID, expectedVersion, wo.Title, wo.Description,
		wo.Priority, wo.Status, wo.AssigneeID, wo.DueDate, wo.EstimatedHours, wo.ActualHours, wo.ScheduledAt,
		wo.StartedAt, wo.YieldedAt, wo.CompletedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=workorder.update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("op=workorder.update: %w", domain.ErrConcurrentModification)
	}
	return nil
}

func (r *WorkOrderRepo) AddNote(ctx domain.Context, tx domain.Tx, note domain.WorkOrderNote) error {
	if note.NoteID == "" {
		note.NoteID = uuid.New().String()
	}
	q := `INSERT INTO work_order_notes (id, work_order_id, note, created_at) VALUES ($1,$2,$3,$4)`
	if err := r.exec(ctx, tx, q, note.NoteID, note.WorkOrderID, note.Note, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=workorder.add_note: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) ListBOMItems(ctx domain.Context, bomID string) ([]domain.BOMItem, error) {
	q := `SELECT bom_id, component_item_id, quantity_per FROM bom_items WHERE bom_id = $1`
	rows, err := r.Pool.Query(ctx, q, bomID)
	if err != nil {
		return nil, fmt.Errorf("op=workorder.list_bom_items: %w", err)
	}
	defer rows.Close()
	var out []domain.BOMItem
	for rows.Next() {
		var b domain.BOMItem
		if err := rows.Scan(&b.BOMID, &b.ComponentItemID, &b.QuantityPer); err != nil {
			return nil, fmt.Errorf("op=workorder.list_bom_items.scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *WorkOrderRepo) ListCostRecords(ctx domain.Context, workOrderID string, from, to int64) ([]domain.ManufacturingCostRecord, error) {
	q := `SELECT id, work_order_id, component_item_id, unit_cost, recorded_at
	      FROM manufacturing_cost_records
	      WHERE work_order_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
	      ORDER BY recorded_at`
	rows, err := r.Pool.Query(ctx, q, workOrderID, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("op=workorder.list_cost_records: %w", err)
	}
	defer rows.Close()
	var out []domain.ManufacturingCostRecord
	for rows.Next() {
		var c domain.ManufacturingCostRecord
		if err := rows.Scan(&c.ID, &c.WorkOrderID, &c.ComponentItemID, &c.UnitCost, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("op=workorder.list_cost_records.scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *WorkOrderRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *WorkOrderRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.WorkOrderRepository = (*WorkOrderRepo)(nil)
