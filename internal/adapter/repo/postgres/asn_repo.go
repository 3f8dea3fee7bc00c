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

// ASNRepo is the postgres-backed domain.ASNRepository (C8's collaborator).
type ASNRepo struct{ Pool PgxPool }

// NewASNRepo constructs an ASNRepo over the given pool.
func NewASNRepo(p PgxPool) *ASNRepo { return &ASNRepo{Pool: p} }

func (r *ASNRepo) Create(ctx domain.Context, tx domain.Tx, a domain.ASN, items []domain.ASNItem) error {
	tracer := otel.Tracer("repo.asns")
	ctx, span := tracer.Start(ctx, "asns.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "asns"))

	if a.ASNID == "" {
		a.ASNID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO asns (id, purchase_order_id, supplier_id, status, expected_delivery, shipping_address,
	        carrier_name, carrier_tracking_number, version, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,$9,$10)`
	if err := r.exec(ctx, tx, q, a.ASNID, a.PurchaseOrderID, a.SupplierID, a.Status, a.ExpectedDelivery,
		a.ShippingAddress, a.CarrierName, a.CarrierTrackingNumber, now, now); err != nil {
		return fmt.Errorf("op=asn.create: %w", err)
	}
	for _, it := range items {
		if err := r.AddItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *ASNRepo) Get(ctx domain.Context, asnID string) (domain.ASN, error) {
	return r.get(ctx, nil, asnID)
}

func (r *ASNRepo) GetForUpdate(ctx domain.Context, tx domain.Tx, asnID string) (domain.ASN, error) {
	return r.get(ctx, tx, asnID)
}

func (r *ASNRepo) get(ctx domain.Context, tx domain.Tx, asnID string) (domain.ASN, error) {
	q := `SELECT id, purchase_order_id, supplier_id, status, expected_delivery, shipping_address,
	        carrier_name, carrier_tracking_number, version, created_at, updated_at
	      FROM asns WHERE id = $1`
	row, err := r.queryRow(ctx, tx, q, asnID)
	if err != nil {
		return domain.ASN{}, err
	}
	var a domain.ASN
	if err := row.Scan(&a.ASNID, &a.PurchaseOrderID, &a.SupplierID, &a.Status, &a.ExpectedDelivery,
		&a.ShippingAddress, &a.CarrierName, &a.CarrierTrackingNumber, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ASN{}, fmt.Errorf("op=asn.get: %w", domain.ErrNotFound)
		}
		return domain.ASN{}, fmt.Errorf("op=asn.get: %w", err)
	}
	return a, nil
}

// Update writes a's mutable fields and bumps version, guarded by the same
// optimistic-lock pattern as WorkOrderRepo.Update (spec.md §4.8).
func (r *ASNRepo) Update(ctx domain.Context, tx domain.Tx, a domain.ASN, expectedVersion int64) error {
	q := `UPDATE asns SET status = $3, expected_delivery = $4, shipping_address = $5, carrier_name = $6,
	        carrier_tracking_number = $7, version = version + 1, updated_at = $8
	      WHERE id = $1 AND version = $2`
	rows, err := execAffected(ctx, r.Pool, tx, q, a.ASNID, expectedVersion, a.Status, a.ExpectedDelivery,
		a.ShippingAddress, a.CarrierName, a.CarrierTrackingNumber, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=asn.update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("op=asn.update: %w", domain.ErrConcurrentModification)
	}
	return nil
}

func (r *ASNRepo) AddItem(ctx domain.Context, tx domain.Tx, item domain.ASNItem) error {
	if item.ItemID == "" {
		item.ItemID = uuid.New().String()
	}
	q := `INSERT INTO asn_items (id, asn_id, inventory_item_id, quantity) VALUES ($1,$2,$3,$4)`
	if err := r.exec(ctx, tx, q, item.ItemID, item.ASNID, item.InventoryItemID, item.Quantity); err != nil {
		return fmt.Errorf("op=asn.add_item: %w", err)
	}
	return nil
}

func (r *ASNRepo) RemoveItem(ctx domain.Context, tx domain.Tx, asnID, itemID string) error {
	q := `DELETE FROM asn_items WHERE asn_id = $1 AND id = $2`
	if err := r.exec(ctx, tx, q, asnID, itemID); err != nil {
		return fmt.Errorf("op=asn.remove_item: %w", err)
	}
	return nil
}

func (r *ASNRepo) AddPackage(ctx domain.Context, tx domain.Tx, pkg domain.ASNPackage) error {
	if pkg.PackageID == "" {
		pkg.PackageID = uuid.New().String()
	}
	q := `INSERT INTO asn_packages (id, asn_id, tracking_number, weight) VALUES ($1,$2,$3,$4)`
	if err := r.exec(ctx, tx, q, pkg.PackageID, pkg.ASNID, pkg.TrackingNumber, pkg.Weight); err != nil {
		return fmt.Errorf("op=asn.add_package: %w", err)
	}
	return nil
}

func (r *ASNRepo) AddNote(ctx domain.Context, tx domain.Tx, note domain.ASNNote) error {
	if note.NoteID == "" {
		note.NoteID = uuid.New().String()
	}
	q := `INSERT INTO asn_notes (id, asn_id, note_type, note_text, created_at, created_by) VALUES ($1,$2,$3,$4,$5,$6)`
	if err := r.exec(ctx, tx, q, note.NoteID, note.ASNID, note.NoteType, note.NoteText, time.Now().UTC(), note.CreatedBy); err != nil {
		return fmt.Errorf("op=asn.add_note: %w", err)
	}
	return nil
}

func (r *ASNRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *ASNRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.ASNRepository = (*ASNRepo)(nil)
