package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stateset/commerce-core/internal/domain"
)

// InventoryRepo is the postgres-backed domain.InventoryRepository (C5's
// collaborator).
type InventoryRepo struct{ Pool PgxPool }

// NewInventoryRepo constructs an InventoryRepo over the given pool.
func NewInventoryRepo(p PgxPool) *InventoryRepo { return &InventoryRepo{Pool: p} }

func (r *InventoryRepo) GetBalance(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	q := `SELECT item_id, location_id, quantity_on_hand, quantity_allocated, quantity_available, updated_at
	      FROM inventory_balances WHERE item_id = $1 AND location_id = $2`
	row, err := r.queryRow(ctx, tx, q, itemID, locationID)
	if err != nil {
		return domain.LocationBalance{}, err
	}
	var b domain.LocationBalance
	if err := row.Scan(&b.InventoryItemID, &b.LocationID, &b.QuantityOnHand, &b.QuantityAllocated, &b.QuantityAvailable, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LocationBalance{}, fmt.Errorf("op=inventory.get_balance: %w", domain.ErrNotFound)
		}
		return domain.LocationBalance{}, fmt.Errorf("op=inventory.get_balance: %w", err)
	}
	return b, nil
}

// GetBalanceForUpdate reads the balance row with a pessimistic row lock
// (spec.md §4.5 Concurrency), held until the enclosing transaction commits
// or rolls back.
func (r *InventoryRepo) GetBalanceForUpdate(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	q := `SELECT item_id, location_id, quantity_on_hand, quantity_allocated, quantity_available, updated_at
	      FROM inventory_balances WHERE item_id = $1 AND location_id = $2 FOR UPDATE`
	row, err := r.queryRow(ctx, tx, q, itemID, locationID)
	if err != nil {
		return domain.LocationBalance{}, err
	}
	var b domain.LocationBalance
	if err := row.Scan(&b.InventoryItemID, &b.LocationID, &b.QuantityOnHand, &b.QuantityAllocated, &b.QuantityAvailable, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LocationBalance{}, fmt.Errorf("op=inventory.get_balance_for_update: %w", domain.ErrNotFound)
		}
		return domain.LocationBalance{}, fmt.Errorf("op=inventory.get_balance_for_update: %w", err)
	}
	return b, nil
}

func (r *InventoryRepo) UpsertBalance(ctx domain.Context, tx domain.Tx, b domain.LocationBalance) error {
	tracer := otel.Tracer("repo.inventory")
	ctx, span := tracer.Start(ctx, "inventory.UpsertBalance")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "inventory_balances"))

	q := `INSERT INTO inventory_balances (item_id, location_id, quantity_on_hand, quantity_allocated, quantity_available, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6)
	      ON CONFLICT (item_id, location_id) DO UPDATE SET
	        quantity_on_hand = EXCLUDED.quantity_on_hand,
	        quantity_allocated = EXCLUDED.quantity_allocated,
	        quantity_available = EXCLUDED.quantity_available,
	        updated_at = EXCLUDED.updated_at`
	if err := r.exec(ctx, tx, q, b.InventoryItemID, b.LocationID, b.QuantityOnHand, b.QuantityAllocated, b.QuantityAvailable, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=inventory.upsert_balance: %w", err)
	}
	return nil
}

func (r *InventoryRepo) ListBalances(ctx domain.Context, itemID int64) ([]domain.LocationBalance, error) {
	q := `SELECT item_id, location_id, quantity_on_hand, quantity_allocated, quantity_available, updated_at
	      FROM inventory_balances WHERE item_id = $1 ORDER BY location_id`
	rows, err := r.Pool.Query(ctx, q, itemID)
	if err != nil {
		return nil, fmt.Errorf("op=inventory.list_balances: %w", err)
	}
	defer rows.Close()
	var out []domain.LocationBalance
	for rows.Next() {
		var b domain.LocationBalance
		if err := rows.Scan(&b.InventoryItemID, &b.LocationID, &b.QuantityOnHand, &b.QuantityAllocated, &b.QuantityAvailable, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=inventory.list_balances.scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) ListLowStock(ctx domain.Context, threshold int64) ([]domain.LocationBalance, error) {
	q := `SELECT item_id, location_id, quantity_on_hand, quantity_allocated, quantity_available, updated_at
	      FROM inventory_balances WHERE quantity_available < $1 ORDER BY quantity_available ASC`
	rows, err := r.Pool.Query(ctx, q, threshold)
	if err != nil {
		return nil, fmt.Errorf("op=inventory.list_low_stock: %w", err)
	}
	defer rows.Close()
	var out []domain.LocationBalance
	for rows.Next() {
		var b domain.LocationBalance
		if err := rows.Scan(&b.InventoryItemID, &b.LocationID, &b.QuantityOnHand, &b.QuantityAllocated, &b.QuantityAvailable, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=inventory.list_low_stock.scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) AppendTransaction(ctx domain.Context, tx domain.Tx, t domain.InventoryTransaction) error {
	q := `INSERT INTO inventory_transactions (id, item_id, location_id, quantity_delta, balance_after, reason, reference_id, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if err := r.exec(ctx, tx, q, t.ID, t.InventoryItemID, t.LocationID, t.QuantityDelta, t.BalanceAfter, t.Reason, t.ReferenceID, t.CreatedAt); err != nil {
		return fmt.Errorf("op=inventory.append_transaction: %w", err)
	}
	return nil
}

func (r *InventoryRepo) CreateReservation(ctx domain.Context, tx domain.Tx, res domain.Reservation) error {
	q := `INSERT INTO reservations (id, item_id, location_id, quantity, reference_id, reference_type, expires_at, state, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if err := r.exec(ctx, tx, q, res.ReservationID, res.InventoryItemID, res.LocationID, res.Quantity, res.ReferenceID, res.ReferenceType, res.ExpiresAt, res.State, res.CreatedAt, res.UpdatedAt); err != nil {
		return fmt.Errorf("op=inventory.create_reservation: %w", err)
	}
	return nil
}

func (r *InventoryRepo) GetActiveReservation(ctx domain.Context, tx domain.Tx, itemID, locationID int64, referenceID string) (domain.Reservation, error) {
	q := `SELECT id, item_id, location_id, quantity, reference_id, reference_type, expires_at, state, created_at, updated_at
	      FROM reservations WHERE item_id = $1 AND location_id = $2 AND reference_id = $3 AND state = $4`
	row, err := r.queryRow(ctx, tx, q, itemID, locationID, referenceID, domain.ReservationActive)
	if err != nil {
		return domain.Reservation{}, err
	}
	var res domain.Reservation
	if err := row.Scan(&res.ReservationID, &res.InventoryItemID, &res.LocationID, &res.Quantity, &res.ReferenceID, &res.ReferenceType, &res.ExpiresAt, &res.State, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, fmt.Errorf("op=inventory.get_active_reservation: %w", domain.ErrNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("op=inventory.get_active_reservation: %w", err)
	}
	return res, nil
}

func (r *InventoryRepo) UpdateReservationState(ctx domain.Context, tx domain.Tx, reservationID string, state domain.ReservationState) error {
	q := `UPDATE reservations SET state = $2, updated_at = $3 WHERE id = $1`
	if err := r.exec(ctx, tx, q, reservationID, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=inventory.update_reservation_state: %w", err)
	}
	return nil
}

func (r *InventoryRepo) ListExpiringReservations(ctx domain.Context, before int64) ([]domain.Reservation, error) {
	q := `SELECT id, item_id, location_id, quantity, reference_id, reference_type, expires_at, state, created_at, updated_at
	      FROM reservations WHERE state = $1 AND expires_at <= $2`
	rows, err := r.Pool.Query(ctx, q, domain.ReservationActive, time.Unix(before, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("op=inventory.list_expiring_reservations: %w", err)
	}
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ReservationID, &res.InventoryItemID, &res.LocationID, &res.Quantity, &res.ReferenceID, &res.ReferenceType, &res.ExpiresAt, &res.State, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=inventory.list_expiring_reservations.scan: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *InventoryRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.InventoryRepository = (*InventoryRepo)(nil)
