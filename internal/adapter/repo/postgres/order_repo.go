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

// OrderRepo is the postgres-backed domain.OrderRepository (C6's collaborator).
type OrderRepo struct{ Pool PgxPool }

// NewOrderRepo constructs an OrderRepo over the given pool.
func NewOrderRepo(p PgxPool) *OrderRepo { return &OrderRepo{Pool: p} }

func (r *OrderRepo) Create(ctx domain.Context, tx domain.Tx, o domain.Order, items []domain.OrderItem) error {
	tracer := otel.Tracer("repo.orders")
	ctx, span := tracer.Start(ctx, "orders.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "orders"))

	if o.OrderID == "" {
		o.OrderID = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO orders (id, customer_id, status, currency, subtotal, tax, discount, total_amount,
	        shipping_address, billing_address, payment_method, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	if err := r.exec(ctx, tx, q, o.OrderID, o.CustomerID, o.Status, o.Currency, o.Subtotal, o.Tax, o.Discount,
		o.TotalAmount, o.ShippingAddress, o.BillingAddress, o.PaymentMethod, now, now); err != nil {
		return fmt.Errorf("op=order.create: %w", err)
	}
	for _, it := range items {
		if err := r.AddItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepo) Get(ctx domain.Context, orderID string) (domain.Order, error) {
	return r.get(ctx, nil, orderID)
}

func (r *OrderRepo) GetForUpdate(ctx domain.Context, tx domain.Tx, orderID string) (domain.Order, error) {
	return r.get(ctx, tx, orderID)
}

func (r *OrderRepo) get(ctx domain.Context, tx domain.Tx, orderID string) (domain.Order, error) {
	q := `SELECT id, customer_id, status, currency, subtotal, tax, discount, total_amount,
	        shipping_address, billing_address, payment_method, created_at, updated_at
	      FROM orders WHERE id = $1`
	row, err := r.queryRow(ctx, tx, q, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	var o domain.Order
	if err := row.Scan(&o.OrderID, &o.CustomerID, &o.Status, &o.Currency, &o.Subtotal, &o.Tax, &o.Discount,
		&o.TotalAmount, &o.ShippingAddress, &o.BillingAddress, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, fmt.Errorf("op=order.get: %w", domain.ErrNotFound)
		}
		return domain.Order{}, fmt.Errorf("op=order.get: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) ListItems(ctx domain.Context, orderID string) ([]domain.OrderItem, error) {
	q := `SELECT id, order_id, sku, product_id, quantity, unit_price, tax_rate, total_price
	      FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.Pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("op=order.list_items: %w", err)
	}
	defer rows.Close()
	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ItemID, &it.OrderID, &it.SKU, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TaxRate, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("op=order.list_items.scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *OrderRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, orderID string, status domain.OrderStatus) error {
	q := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	if err := r.exec(ctx, tx, q, orderID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=order.update_status: %w", err)
	}
	return nil
}

func (r *OrderRepo) UpdateOrder(ctx domain.Context, tx domain.Tx, o domain.Order) error {
	q := `UPDATE orders SET subtotal = $2, tax = $3, discount = $4, total_amount = $5, updated_at = $6 WHERE id = $1`
	if err := r.exec(ctx, tx, q, o.OrderID, o.Subtotal, o.Tax, o.Discount, o.TotalAmount, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=order.update_order: %w", err)
	}
	return nil
}

func (r *OrderRepo) AddItem(ctx domain.Context, tx domain.Tx, item domain.OrderItem) error {
	if item.ItemID == "" {
		item.ItemID = uuid.New().String()
	}
	q := `INSERT INTO order_items (id, order_id, sku, product_id, quantity, unit_price, tax_rate, total_price)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if err := r.exec(ctx, tx, q, item.ItemID, item.OrderID, item.SKU, item.ProductID, item.Quantity, item.UnitPrice, item.TaxRate, item.TotalPrice); err != nil {
		return fmt.Errorf("op=order.add_item: %w", err)
	}
	return nil
}

func (r *OrderRepo) RemoveItem(ctx domain.Context, tx domain.Tx, orderID, itemID string) error {
	q := `DELETE FROM order_items WHERE order_id = $1 AND id = $2`
	if err := r.exec(ctx, tx, q, orderID, itemID); err != nil {
		return fmt.Errorf("op=order.remove_item: %w", err)
	}
	return nil
}

func (r *OrderRepo) AddNote(ctx domain.Context, tx domain.Tx, note domain.OrderNote) error {
	if note.NoteID == "" {
		note.NoteID = uuid.New().String()
	}
	q := `INSERT INTO order_notes (id, order_id, note, created_at, created_by) VALUES ($1,$2,$3,$4,$5)`
	if err := r.exec(ctx, tx, q, note.NoteID, note.OrderID, note.Note, time.Now().UTC(), note.CreatedBy); err != nil {
		return fmt.Errorf("op=order.add_note: %w", err)
	}
	return nil
}

func (r *OrderRepo) AppendHistory(ctx domain.Context, tx domain.Tx, h domain.OrderHistory) error {
	q := `INSERT INTO order_history (order_id, from_status, to_status, changed_at) VALUES ($1,$2,$3,$4)`
	if err := r.exec(ctx, tx, q, h.OrderID, h.FromStatus, h.ToStatus, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=order.append_history: %w", err)
	}
	return nil
}

func (r *OrderRepo) exec(ctx domain.Context, tx domain.Tx, sql string, args ...any) error {
	return execOn(ctx, r.Pool, tx, sql, args...)
}

func (r *OrderRepo) queryRow(ctx domain.Context, tx domain.Tx, sql string, args ...any) (pgx.Row, error) {
	return queryRowOn(ctx, r.Pool, tx, sql, args...)
}

var _ domain.OrderRepository = (*OrderRepo)(nil)
