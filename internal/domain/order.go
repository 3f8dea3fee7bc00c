package domain

import "time"

// OrderStatus is the closed enum canonicalizing what the upstream source
// inconsistently treated as a free-form string (spec.md §9 open question).
type OrderStatus string

// Order statuses.
const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
	OrderOnHold     OrderStatus = "on_hold"
	OrderReturned   OrderStatus = "returned"
)

// orderTransitions is the legal (from -> {to...}) matrix from spec.md §4.6.
var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderProcessing: true, OrderCancelled: true, OrderOnHold: true},
	OrderProcessing: {OrderShipped: true, OrderCancelled: true, OrderOnHold: true},
	OrderOnHold:     {OrderProcessing: true, OrderCancelled: true},
	OrderShipped:    {OrderDelivered: true, OrderReturned: true},
	OrderDelivered:  {OrderRefunded: true, OrderReturned: true},
	OrderReturned:   {OrderRefunded: true},
}

// CanTransitionOrder reports whether (from, to) is an allowed order status
// transition.
func CanTransitionOrder(from, to OrderStatus) bool {
	return orderTransitions[from][to]
}

// Order is the order aggregate root.
type Order struct {
	OrderID         string
	CustomerID      string
	Status          OrderStatus
	Currency        string
	Subtotal        float64
	Tax             float64
	Discount        float64
	TotalAmount     float64
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a line item, immutable once the order leaves pending/on_hold
// except via the remove-item command which also rewrites totals.
type OrderItem struct {
	ItemID     string
	OrderID    string
	SKU        string
	ProductID  string
	Quantity   int64
	UnitPrice  float64
	TaxRate    float64
	TotalPrice float64
}

// OrderNote is an append-only annotation on an order.
type OrderNote struct {
	NoteID    string
	OrderID   string
	Note      string
	CreatedAt time.Time
	CreatedBy string
}

// OrderHistory records a single status transition for audit/derivation.
type OrderHistory struct {
	OrderID   string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedAt  time.Time
}

// Recompute sets TotalAmount = sum(line.qty*line.price) + tax - discount,
// per spec.md §3's order invariant.
func (o *Order) Recompute(items []OrderItem) {
	var subtotal float64
	for _, it := range items {
		subtotal += float64(it.Quantity) * it.UnitPrice
	}
	o.Subtotal = subtotal
	o.TotalAmount = subtotal + o.Tax - o.Discount
}
