// Package order implements the Order Aggregate (C6, spec.md §4.6): order
// creation, status-transition commands, item management, and the field
// updates (shipping/billing address, payment method, notes) that ride the
// same "revalidate transition, rewrite totals, emit an event" choreography.
package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is C6's command surface over domain.OrderRepository.
type Service struct {
	deps command.Deps
	repo domain.OrderRepository
}

// NewService constructs the Order aggregate's command surface.
func NewService(deps command.Deps, repo domain.OrderRepository) *Service {
	return &Service{deps: deps, repo: repo}
}

// Get returns an order by id (read-only, outside the command framework).
func (s *Service) Get(ctx domain.Context, orderID string) (domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// ListItems returns an order's line items (read-only).
func (s *Service) ListItems(ctx domain.Context, orderID string) ([]domain.OrderItem, error) {
	return s.repo.ListItems(ctx, orderID)
}

// CreateOrderInput is the command input for order creation (spec.md §4.6).
type CreateOrderInput struct {
	CustomerID      string           `validate:"required"`
	Currency        string           `validate:"required,len=3"`
	Tax             float64          `validate:"gte=0"`
	Discount        float64          `validate:"gte=0"`
	ShippingAddress string           `validate:"required"`
	BillingAddress  string           `validate:"required"`
	PaymentMethod   string
	Items           []CreateOrderItemInput `validate:"required,min=1,dive"`
}

// CreateOrderItemInput is one requested line item.
type CreateOrderItemInput struct {
	SKU       string  `validate:"required"`
	ProductID string  `validate:"required"`
	Quantity  int64   `validate:"required,gt=0"`
	UnitPrice float64 `validate:"gte=0"`
	TaxRate   float64 `validate:"gte=0"`
}

// CreateOrder inserts the order and its items in one transaction, recomputes
// totals from the items, and emits OrderCreated.
func (s *Service) CreateOrder(ctx domain.Context, in CreateOrderInput) (domain.Order, error) {
	res, err := command.Run(ctx, s.deps, "order.create",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			now := time.Now().UTC()
			o := domain.Order{
				OrderID:         uuid.New().String(),
				CustomerID:      in.CustomerID,
				Status:          domain.OrderPending,
				Currency:        in.Currency,
				Tax:             in.Tax,
				Discount:        in.Discount,
				ShippingAddress: in.ShippingAddress,
				BillingAddress:  in.BillingAddress,
				PaymentMethod:   in.PaymentMethod,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			items := make([]domain.OrderItem, 0, len(in.Items))
			for _, it := range in.Items {
				items = append(items, domain.OrderItem{
					ItemID:     uuid.New().String(),
					OrderID:    o.OrderID,
					SKU:        it.SKU,
					ProductID:  it.ProductID,
					Quantity:   it.Quantity,
					UnitPrice:  it.UnitPrice,
					TaxRate:    it.TaxRate,
					TotalPrice: float64(it.Quantity) * it.UnitPrice,
				})
			}
			o.Recompute(items)

			if err := s.repo.Create(ctx, tx, o, items); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewOrderCreatedEvent(o.OrderID, o.CustomerID, o.TotalAmount, o.Currency)
			return o, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   o.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.Order{}, err
	}
	return res.(domain.Order), nil
}

// eventKindForTransition maps a legal (from, to) order transition onto the
// specific event kind spec.md §6's catalogue assigns it; on_hold -> processing
// is distinguished as "released from hold" rather than a generic update.
func eventKindForTransition(from, to domain.OrderStatus) domain.EventKind {
	switch {
	case from == domain.OrderOnHold && to == domain.OrderProcessing:
		return domain.EventOrderReleasedFromHold
	case to == domain.OrderCancelled:
		return domain.EventOrderCancelled
	case to == domain.OrderShipped:
		return domain.EventOrderShipped
	case to == domain.OrderDelivered:
		return domain.EventOrderDelivered
	case to == domain.OrderReturned:
		return domain.EventOrderReturned
	case to == domain.OrderRefunded:
		return domain.EventOrderRefunded
	case to == domain.OrderOnHold:
		return domain.EventOrderOnHold
	default:
		return domain.EventOrderUpdated
	}
}

// ChangeStatusInput is the command input for every status-transition command.
type ChangeStatusInput struct {
	OrderID string            `validate:"required"`
	To      domain.OrderStatus `validate:"required"`
}

// ChangeStatus revalidates the transition against domain.CanTransitionOrder;
// an illegal transition fails with domain.ErrInvalidStatus.
func (s *Service) ChangeStatus(ctx domain.Context, in ChangeStatusInput) error {
	_, err := command.Run(ctx, s.deps, "order.change_status",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			o, err := s.repo.GetForUpdate(ctx, tx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionOrder(o.Status, in.To) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "order", From: string(o.Status), To: string(in.To)}
			}
			from := o.Status
			if err := s.repo.UpdateStatus(ctx, tx, in.OrderID, in.To); err != nil {
				return nil, nil, nil, err
			}
			if err := s.repo.AppendHistory(ctx, tx, domain.OrderHistory{OrderID: in.OrderID, FromStatus: from, ToStatus: in.To, ChangedAt: time.Now().UTC()}); err != nil {
				return nil, nil, nil, err
			}

			kind := eventKindForTransition(from, in.To)
			evt := domain.NewOrderStatusChangedEvent(kind, in.OrderID, from, in.To)
			return nil, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   in.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// itemsMutable reports whether status is one of the only statuses item add/remove may run in
// (spec.md §4.6).
func itemsMutable(status domain.OrderStatus) bool {
	return status == domain.OrderPending || status == domain.OrderOnHold
}

// AddItemInput is the command input for adding a line item.
type AddItemInput struct {
	OrderID   string  `validate:"required"`
	SKU       string  `validate:"required"`
	ProductID string  `validate:"required"`
	Quantity  int64   `validate:"required,gt=0"`
	UnitPrice float64 `validate:"gte=0"`
	TaxRate   float64 `validate:"gte=0"`
}

// AddItem is legal only while the order is pending or on_hold; it rewrites
// totals in the same transaction and emits OrderItemAdded.
func (s *Service) AddItem(ctx domain.Context, in AddItemInput) error {
	_, err := command.Run(ctx, s.deps, "order.add_item",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			o, err := s.repo.GetForUpdate(ctx, tx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !itemsMutable(o.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("items can only be added while the order is pending or on_hold")
			}

			item := domain.OrderItem{
				ItemID:     uuid.New().String(),
				OrderID:    in.OrderID,
				SKU:        in.SKU,
				ProductID:  in.ProductID,
				Quantity:   in.Quantity,
				UnitPrice:  in.UnitPrice,
				TaxRate:    in.TaxRate,
				TotalPrice: float64(in.Quantity) * in.UnitPrice,
			}
			if err := s.repo.AddItem(ctx, tx, item); err != nil {
				return nil, nil, nil, err
			}

			items, err := s.repo.ListItems(ctx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			o.Recompute(items)
			if err := s.repo.UpdateOrder(ctx, tx, o); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewOrderItemAddedEvent(in.OrderID, in.SKU, in.Quantity, o.TotalAmount)
			return nil, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   in.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// RemoveItemInput is the command input for removing a line item.
type RemoveItemInput struct {
	OrderID string `validate:"required"`
	ItemID  string `validate:"required"`
}

// RemoveItem is legal only while the order is pending or on_hold; it
// rewrites totals in the same transaction and emits OrderItemRemoved.
func (s *Service) RemoveItem(ctx domain.Context, in RemoveItemInput) error {
	_, err := command.Run(ctx, s.deps, "order.remove_item",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			o, err := s.repo.GetForUpdate(ctx, tx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !itemsMutable(o.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("items can only be removed while the order is pending or on_hold")
			}

			items, err := s.repo.ListItems(ctx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			var removed *domain.OrderItem
			for i := range items {
				if items[i].ItemID == in.ItemID {
					removed = &items[i]
					break
				}
			}
			if removed == nil {
				return nil, nil, nil, domain.ErrNotFound
			}
			if err := s.repo.RemoveItem(ctx, tx, in.OrderID, in.ItemID); err != nil {
				return nil, nil, nil, err
			}

			remaining, err := s.repo.ListItems(ctx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			o.Recompute(remaining)
			if err := s.repo.UpdateOrder(ctx, tx, o); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewOrderItemRemovedEvent(in.OrderID, removed.SKU, removed.Quantity, o.TotalAmount)
			return nil, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   in.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AddNoteInput is the command input for appending a note.
type AddNoteInput struct {
	OrderID   string `validate:"required"`
	Note      string `validate:"required"`
	CreatedBy string
}

// AddNote appends an order note and emits OrderNoteAdded.
func (s *Service) AddNote(ctx domain.Context, in AddNoteInput) error {
	_, err := command.Run(ctx, s.deps, "order.add_note",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			note := domain.OrderNote{NoteID: uuid.New().String(), OrderID: in.OrderID, Note: in.Note, CreatedAt: time.Now().UTC(), CreatedBy: in.CreatedBy}
			if err := s.repo.AddNote(ctx, tx, note); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewOrderFieldUpdatedEvent(domain.EventOrderNoteAdded, in.OrderID, in.Note)
			return nil, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   in.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// UpdateFieldInput is the command input for the three field-update commands
// (shipping address, billing address, payment method).
type UpdateFieldInput struct {
	OrderID string `validate:"required"`
	Value   string `validate:"required"`
}

// UpdateShippingAddress rewrites the order's shipping address and emits
// OrderShippingAddressUpdated.
func (s *Service) UpdateShippingAddress(ctx domain.Context, in UpdateFieldInput) error {
	return s.updateField(ctx, "order.update_shipping_address", in, domain.EventOrderShippingAddressUpdated, func(o *domain.Order) { o.ShippingAddress = in.Value })
}

// UpdateBillingAddress rewrites the order's billing address and emits
// OrderBillingAddressUpdated.
func (s *Service) UpdateBillingAddress(ctx domain.Context, in UpdateFieldInput) error {
	return s.updateField(ctx, "order.update_billing_address", in, domain.EventOrderBillingAddressUpdated, func(o *domain.Order) { o.BillingAddress = in.Value })
}

// UpdatePaymentMethod rewrites the order's payment method and emits
// OrderPaymentMethodUpdated.
func (s *Service) UpdatePaymentMethod(ctx domain.Context, in UpdateFieldInput) error {
	return s.updateField(ctx, "order.update_payment_method", in, domain.EventOrderPaymentMethodUpdated, func(o *domain.Order) { o.PaymentMethod = in.Value })
}

func (s *Service) updateField(ctx domain.Context, name string, in UpdateFieldInput, kind domain.EventKind, mutate func(*domain.Order)) error {
	_, err := command.Run(ctx, s.deps, name,
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			o, err := s.repo.GetForUpdate(ctx, tx, in.OrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			mutate(&o)
			o.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateOrder(ctx, tx, o); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewOrderFieldUpdatedEvent(kind, in.OrderID, in.Value)
			return nil, []command.OutboxMessage{{
				AggregateType: "order",
				AggregateID:   in.OrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}
