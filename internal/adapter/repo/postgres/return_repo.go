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

// ReturnRepo is the postgres-backed domain.ReturnRepository (C9's return
// lifecycle collaborator).
type ReturnRepo struct{ Pool PgxPool }

// NewReturnRepo constructs a ReturnRepo over the given pool.
func NewReturnRepo(p PgxPool) *ReturnRepo { return &ReturnRepo{Pool: p} }

func (r *ReturnRepo) Create(ctx domain.Context, tx domain.Tx, ret domain.Return, items []domain.ReturnItem) error {
	tracer := otel.Tracer("repo.returns")
	ctx, span := tracer.Start(ctx, "returns.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "returns"))

	if ret.ReturnID == "" {
		ret.ReturnID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO returns (id, order_id, reason, status, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if err := r.exec(ctx, tx, q, ret.ReturnID, ret.OrderID, ret.Reason, ret.Status, now, now); err != nil {
		return fmt.Errorf("op=return.create: %w", err)
	}
	for _, it := range items {
		if it.ItemID == "" {
			it.ItemID = uuid.New().String()
		}
		iq := `INSERT INTO return_items (id, return_id, order_item_id, inventory_item_id, location_id, quantity,
		        condition, restock_eligible, restocked) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
		if err := r.exec(ctx, tx, iq, it.ItemID, ret.ReturnID, it.OrderItemID, it.InventoryItemID, it.LocationID,
			it.Quantity, it.Condition, it.RestockEligible, it.Restocked); err != nil {
			return fmt.Errorf("op=return.create_item: %w", err)
		}
	}
	return nil
}

func (r *ReturnRepo) Get(ctx domain.Context, returnID string) (domain.Return, error) {
	return r.get(ctx, nil, returnID)
}

func (r *ReturnRepo) GetForUpdate(ctx domain.Context, tx domain.Tx, returnID string) (domain.Return, error) {
	return r.get(ctx, tx, returnID)
}

func (r *ReturnRepo) get(ctx domain.Context, tx domain.Tx, returnID string) (domain.Return, error) {
	q := `SELECT id, order_id, reason, status, created_at, updated_at FROM returns WHERE id = $1`
	row, err := r.queryRow(ctx, tx, q, returnID)
	if err != nil {
		return domain.Return{}, err
	}
	var ret domain.Return
	if err := row.Scan(&ret.ReturnID, &ret.OrderID, &ret.Reason, &ret.Status, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Return{}, fmt.Errorf("op=return.get: %w", domain.ErrNotFound)
		}
		return domain.Return{}, fmt.Errorf("op=return.get: %w", err)
	}
	return ret, nil
}

func (r *ReturnRepo) ListItems(ctx domain.Context, returnID string) ([]domain.ReturnItem, error) {
	q := `SELECT id, return_id, order_item_id, inventory_item_id, location_id, quantity, condition,
	        restock_eligible, restocked FROM return_items WHERE return_id = $1`
	rows, err := r.Pool.Query(ctx, q, returnID)
	if err != nil {
		return nil, fmt.Errorf("op=return.list_items: %w", err)
	}
	defer rows.Close()
	var out []domain.ReturnItem
	for rows.Next() {
		var it domain.ReturnItem
		if err := rows.Scan(&it.ItemID, &it.ReturnID, &it.OrderItemID, &it.InventoryItemID, &it.LocationID,
			&it.Quantity, &it.Condition, &it.RestockEligible, &it.Restocked); err != nil {
			return nil, fmt.Errorf("op=return.list_items.scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ReturnRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, returnID string, status domain.ReturnStatus) error {
	q := `UPDATE returns SET status = $2, updated_at = $3 WHERE id = $1`
	if err := r.exec(ctx, tx, q, returnID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=return.update_status: %w", err)
	}
	return nil
}

func (r *ReturnRepo) MarkItemRestocked(ctx domain.Context, tx domain.Tx, itemID string) error {
	q := `UPDATE return_items SET restocked = true WHERE id = $1`
	if err := r.exec(ctx, tx, q, itemID); err != nil {
		return fmt.Errorf("op=return.mark_item_restocked: %w", err)
	}
	return nil
}

func (r *ReturnRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *ReturnRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.ReturnRepository = (*ReturnRepo)(nil)
