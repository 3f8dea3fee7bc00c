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

// PaymentRepo is the postgres-backed domain.PaymentRepository. The core only
// records payment-gateway outcomes, it never calls a gateway (spec.md §1
// Non-goals).
type PaymentRepo struct{ Pool PgxPool }

// NewPaymentRepo constructs a PaymentRepo over the given pool.
func NewPaymentRepo(p PgxPool) *PaymentRepo { return &PaymentRepo{Pool: p} }

func (r *PaymentRepo) Create(ctx domain.Context, tx domain.Tx, p domain.Payment) error {
	tracer := otel.Tracer("repo.payments")
	ctx, span := tracer.Start(ctx, "payments.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "payments"))

	if p.PaymentID == "" {
		p.PaymentID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO payments (id, order_id, amount, currency, status, gateway_reference, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if err := execOn(ctx, r.Pool, tx, q, p.PaymentID, p.OrderID, p.Amount, p.Currency, p.Status, p.GatewayReference, now, now); err != nil {
		return fmt.Errorf("op=payment.create: %w", err)
	}
	return nil
}

func (r *PaymentRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, paymentID string, status domain.PaymentStatus) error {
	q := `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`
	if err := execOn(ctx, r.Pool, tx, q, paymentID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=payment.update_status: %w", err)
	}
	return nil
}

func (r *PaymentRepo) Get(ctx domain.Context, paymentID string) (domain.Payment, error) {
	q := `SELECT id, order_id, amount, currency, status, gateway_reference, created_at, updated_at
	      FROM payments WHERE id = $1`
	row := r.Pool.QueryRow(ctx, q, paymentID)
	var p domain.Payment
	if err := row.Scan(&p.PaymentID, &p.OrderID, &p.Amount, &p.Currency, &p.Status, &p.GatewayReference,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, fmt.Errorf("op=payment.get: %w", domain.ErrNotFound)
		}
		return domain.Payment{}, fmt.Errorf("op=payment.get: %w", err)
	}
	return p, nil
}

var _ domain.PaymentRepository = (*PaymentRepo)(nil)
