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

// WarrantyRepo is the postgres-backed domain.WarrantyRepository (C9's
// warranty lifecycle collaborator).
type WarrantyRepo struct{ Pool PgxPool }

// NewWarrantyRepo constructs a WarrantyRepo over the given pool.
func NewWarrantyRepo(p PgxPool) *WarrantyRepo { return &WarrantyRepo{Pool: p} }

func (r *WarrantyRepo) Create(ctx domain.Context, tx domain.Tx, w domain.Warranty) error {
	tracer := otel.Tracer("repo.warranties")
	ctx, span := tracer.Start(ctx, "warranties.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "warranties"))

	if w.WarrantyID == "" {
		w.WarrantyID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO warranties (id, product_id, customer_id, start_date, end_date, status, terms, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if err := r.exec(ctx, tx, q, w.WarrantyID, w.ProductID, w.CustomerID, w.StartDate, w.EndDate, w.Status, w.Terms, now, now); err != nil {
		return fmt.Errorf("op=warranty.create: %w", err)
	}
	return nil
}

func (r *WarrantyRepo) Get(ctx domain.Context, warrantyID string) (domain.Warranty, error) {
	q := `SELECT id, product_id, customer_id, start_date, end_date, status, terms, created_at, updated_at
	      FROM warranties WHERE id = $1`
	row := r.Pool.QueryRow(ctx, q, warrantyID)
	var w domain.Warranty
	if err := row.Scan(&w.WarrantyID, &w.ProductID, &w.CustomerID, &w.StartDate, &w.EndDate, &w.Status, &w.Terms,
		&w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Warranty{}, fmt.Errorf("op=warranty.get: %w", domain.ErrNotFound)
		}
		return domain.Warranty{}, fmt.Errorf("op=warranty.get: %w", err)
	}
	return w, nil
}

func (r *WarrantyRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, warrantyID string, status domain.WarrantyStatus) error {
	q := `UPDATE warranties SET status = $2, updated_at = $3 WHERE id = $1`
	if err := r.exec(ctx, tx, q, warrantyID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=warranty.update_status: %w", err)
	}
	return nil
}

func (r *WarrantyRepo) CreateClaim(ctx domain.Context, tx domain.Tx, c domain.WarrantyClaim) error {
	if c.ClaimID == "" {
		c.ClaimID = uuid.New().String()
	}
	q := `INSERT INTO warranty_claims (id, warranty_id, customer_id, status, resolution, resolved_at, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if err := r.exec(ctx, tx, q, c.ClaimID, c.WarrantyID, c.CustomerID, c.Status, c.Resolution, c.ResolvedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=warranty.create_claim: %w", err)
	}
	return nil
}

func (r *WarrantyRepo) GetClaimForUpdate(ctx domain.Context, tx domain.Tx, claimID string) (domain.WarrantyClaim, error) {
	q := `SELECT id, warranty_id, customer_id, status, resolution, resolved_at, created_at
	      FROM warranty_claims WHERE id = $1`
	row, err := r.queryRow(ctx, tx, q, claimID)
	if err != nil {
		return domain.WarrantyClaim{}, err
	}
	var c domain.WarrantyClaim
	if err := row.Scan(&c.ClaimID, &c.WarrantyID, &c.CustomerID, &c.Status, &c.Resolution, &c.ResolvedAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WarrantyClaim{}, fmt.Errorf("op=warranty.get_claim: %w", domain.ErrNotFound)
		}
		return domain.WarrantyClaim{}, fmt.Errorf("op=warranty.get_claim: %w", err)
	}
	return c, nil
}

func (r *WarrantyRepo) UpdateClaim(ctx domain.Context, tx domain.Tx, c domain.WarrantyClaim) error {
	q := `UPDATE warranty_claims SET status = $2, resolution = $3, resolved_at = $4 WHERE id = $1`
	if err := r.exec(ctx, tx, q, c.ClaimID, c.Status, c.Resolution, c.ResolvedAt); err != nil {
		return fmt.Errorf("op=warranty.update_claim: %w", err)
	}
	return nil
}

func (r *WarrantyRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *WarrantyRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.WarrantyRepository = (*WarrantyRepo)(nil)
