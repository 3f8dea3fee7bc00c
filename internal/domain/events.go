package domain

import "time"

// EventKind is the closed set of domain event variants from spec.md §6.
// The outbox mapping table (§4.3 step 2, §6) keys off exactly these string
// values as `event_type`.
type EventKind string

// Order events.
const (
	EventOrderCreated                EventKind = "OrderCreated"
	EventOrderUpdated                EventKind = "OrderUpdated"
	EventOrderCancelled              EventKind = "OrderCancelled"
	EventOrderShipped                EventKind = "OrderShipped"
	EventOrderDelivered              EventKind = "OrderDelivered"
	EventOrderReturned               EventKind = "OrderReturned"
	EventOrderRefunded               EventKind = "OrderRefunded"
	EventOrderOnHold                 EventKind = "OrderOnHold"
	EventOrderReleasedFromHold       EventKind = "OrderReleasedFromHold"
	EventOrderItemAdded              EventKind = "OrderItemAdded"
	EventOrderItemRemoved            EventKind = "OrderItemRemoved"
	EventOrderNoteAdded              EventKind = "OrderNoteAdded"
	EventOrderShippingAddressUpdated EventKind = "OrderShippingAddressUpdated"
	EventOrderBillingAddressUpdated  EventKind = "OrderBillingAddressUpdated"
	EventOrderPaymentMethodUpdated   EventKind = "OrderPaymentMethodUpdated"
)

// Inventory events.
const (
	EventInventoryAdjusted              EventKind = "InventoryAdjusted"
	EventInventoryReserved              EventKind = "InventoryReserved"
	EventPartialReservationWarning      EventKind = "PartialReservationWarning"
	EventInventoryReleased              EventKind = "InventoryReleased"
	EventInventoryAllocated             EventKind = "InventoryAllocated"
	EventInventoryDeallocated           EventKind = "InventoryDeallocated"
	EventInventoryReceived              EventKind = "InventoryReceived"
	EventInventoryTransferred           EventKind = "InventoryTransferred"
	EventInventoryCycleCountCompleted   EventKind = "InventoryCycleCountCompleted"
	EventInventoryLevelSet              EventKind = "InventoryLevelSet"
	EventInventorySafetyStockAlert      EventKind = "InventorySafetyStockAlert"
)

// ASN events.
const (
	EventASNCreated          EventKind = "ASNCreated"
	EventASNUpdated          EventKind = "ASNUpdated"
	EventASNCancelled        EventKind = "ASNCancelled"
	EventASNInTransit        EventKind = "ASNInTransit"
	EventASNDelivered        EventKind = "ASNDelivered"
	EventASNItemAdded        EventKind = "ASNItemAdded"
	EventASNItemRemoved      EventKind = "ASNItemRemoved"
	EventASNOnHold           EventKind = "ASNOnHold"
	EventASNReleasedFromHold EventKind = "ASNReleasedFromHold"
	EventASNSupplierNotified EventKind = "ASNSupplierNotified"
)

// Work order events.
const (
	EventWorkOrderCreated    EventKind = "WorkOrderCreated"
	EventWorkOrderUpdated    EventKind = "WorkOrderUpdated"
	EventWorkOrderCancelled  EventKind = "WorkOrderCancelled"
	EventWorkOrderStarted    EventKind = "WorkOrderStarted"
	EventWorkOrderCompleted  EventKind = "WorkOrderCompleted"
	EventWorkOrderIssued     EventKind = "WorkOrderIssued"
	EventWorkOrderPicked     EventKind = "WorkOrderPicked"
	EventWorkOrderYielded    EventKind = "WorkOrderYielded"
	EventWorkOrderScheduled  EventKind = "WorkOrderScheduled"
	EventWorkOrderAssigned   EventKind = "WorkOrderAssigned"
	EventWorkOrderUnassigned EventKind = "WorkOrderUnassigned"
	EventWorkOrderNoteAdded  EventKind = "WorkOrderNoteAdded"
)

// Returns events.
const (
	EventReturnCreated   EventKind = "ReturnCreated"
	EventReturnApproved  EventKind = "ReturnApproved"
	EventReturnRejected  EventKind = "ReturnRejected"
	EventReturnCancelled EventKind = "ReturnCancelled"
	EventReturnCompleted EventKind = "ReturnCompleted"
	EventReturnRefunded  EventKind = "ReturnRefunded"
	EventReturnReopened  EventKind = "ReturnReopened"
)

// Warranty events.
const (
	EventWarrantyCreated        EventKind = "WarrantyCreated"
	EventWarrantyClaimed        EventKind = "WarrantyClaimed"
	EventWarrantyClaimApproved  EventKind = "WarrantyClaimApproved"
	EventWarrantyClaimRejected  EventKind = "WarrantyClaimRejected"
)

// Payment events.
const (
	EventPaymentAuthorized EventKind = "PaymentAuthorized"
	EventPaymentCaptured   EventKind = "PaymentCaptured"
	EventPaymentRefunded   EventKind = "PaymentRefunded"
	EventPaymentFailed     EventKind = "PaymentFailed"
	EventPaymentVoided     EventKind = "PaymentVoided"
)

// Event is implemented by every value-typed event variant. Events carry no
// references, only values (spec.md §3 Ownership).
type Event interface {
	Kind() EventKind
	AggregateID() string
}

// baseEvent factors the common AggregateID accessor; embedded, never used
// polymorphically outside this package.
type baseEvent struct {
	ID string
}

func (b baseEvent) AggregateID() string { return b.ID }

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	baseEvent
	CustomerID  string
	TotalAmount float64
	Currency    string
}

// Kind implements Event.
func (OrderCreatedEvent) Kind() EventKind { return EventOrderCreated }

// NewOrderCreatedEvent builds the event emitted once a new order commits.
func NewOrderCreatedEvent(orderID, customerID string, totalAmount float64, currency string) OrderCreatedEvent {
	return OrderCreatedEvent{baseEvent: baseEvent{ID: orderID}, CustomerID: customerID, TotalAmount: totalAmount, Currency: currency}
}

// OrderStatusChangedEvent covers every order status transition; the concrete
// Kind determines which of Updated/Cancelled/Shipped/Delivered/Returned/
// Refunded/OnHold/ReleasedFromHold it represents.
type OrderStatusChangedEvent struct {
	baseEvent
	kind     EventKind
	From     OrderStatus
	To       OrderStatus
	ChangedAt time.Time
}

// NewOrderStatusChangedEvent builds the event for a specific transition kind.
func NewOrderStatusChangedEvent(kind EventKind, orderID string, from, to OrderStatus) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{baseEvent: baseEvent{ID: orderID}, kind: kind, From: from, To: to, ChangedAt: time.Now().UTC()}
}

// Kind implements Event.
func (e OrderStatusChangedEvent) Kind() EventKind { return e.kind }

// OrderItemChangedEvent covers ItemAdded/ItemRemoved.
type OrderItemChangedEvent struct {
	baseEvent
	kind       EventKind
	SKU        string
	Quantity   int64
	NewTotal   float64
}

// Kind implements Event.
func (e OrderItemChangedEvent) Kind() EventKind { return e.kind }

// NewOrderItemAddedEvent builds an OrderItemAdded event.
func NewOrderItemAddedEvent(orderID, sku string, qty int64, newTotal float64) OrderItemChangedEvent {
	return OrderItemChangedEvent{baseEvent: baseEvent{ID: orderID}, kind: EventOrderItemAdded, SKU: sku, Quantity: qty, NewTotal: newTotal}
}

// NewOrderItemRemovedEvent builds an OrderItemRemoved event.
func NewOrderItemRemovedEvent(orderID, sku string, qty int64, newTotal float64) OrderItemChangedEvent {
	return OrderItemChangedEvent{baseEvent: baseEvent{ID: orderID}, kind: EventOrderItemRemoved, SKU: sku, Quantity: qty, NewTotal: newTotal}
}

// OrderFieldUpdatedEvent covers NoteAdded/ShippingAddressUpdated/
// BillingAddressUpdated/PaymentMethodUpdated.
type OrderFieldUpdatedEvent struct {
	baseEvent
	kind  EventKind
	Value string
}

// Kind implements Event.
func (e OrderFieldUpdatedEvent) Kind() EventKind { return e.kind }

// NewOrderFieldUpdatedEvent builds a field-update event of the given kind.
func NewOrderFieldUpdatedEvent(kind EventKind, orderID, value string) OrderFieldUpdatedEvent {
	return OrderFieldUpdatedEvent{baseEvent: baseEvent{ID: orderID}, kind: kind, Value: value}
}

// InventoryAdjustedEvent records an on-hand adjustment.
type InventoryAdjustedEvent struct {
	baseEvent
	LocationID      int64
	InventoryItemID int64
	Delta           int64
	NewQuantity     int64
	Reason          InventoryTransactionReason
	TransactionID   string
}

// Kind implements Event.
func (InventoryAdjustedEvent) Kind() EventKind { return EventInventoryAdjusted }

// NewInventoryAdjustedEvent builds the event for an Adjust write (spec.md §4.5).
// AggregateID is the balance key so outbox dispatch gives per-location
// ordering (spec.md §5).
func NewInventoryAdjustedEvent(itemID, locationID, delta, newQuantity int64, reason InventoryTransactionReason, transactionID string) InventoryAdjustedEvent {
	return InventoryAdjustedEvent{
		baseEvent:       baseEvent{ID: BalanceKey(itemID, locationID)},
		LocationID:      locationID,
		InventoryItemID: itemID,
		Delta:           delta,
		NewQuantity:     newQuantity,
		Reason:          reason,
		TransactionID:   transactionID,
	}
}

// InventoryReservedEvent records a (possibly partial) reservation.
type InventoryReservedEvent struct {
	baseEvent
	LocationID int64
	Lines      []ReservationLine
	Fully      bool
	ExpiresAt  time.Time
}

// Kind implements Event.
func (InventoryReservedEvent) Kind() EventKind { return EventInventoryReserved }

// NewInventoryReservedEvent builds the event for a Reserve write.
func NewInventoryReservedEvent(itemID, locationID int64, lines []ReservationLine, fully bool, expiresAt time.Time) InventoryReservedEvent {
	return InventoryReservedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Lines: lines, Fully: fully, ExpiresAt: expiresAt}
}

// PartialReservationWarningEvent is emitted alongside InventoryReserved when
// a strategy=Partial reservation came up short.
type PartialReservationWarningEvent struct {
	baseEvent
	LocationID int64
	Lines      []ReservationLine
}

// Kind implements Event.
func (PartialReservationWarningEvent) Kind() EventKind { return EventPartialReservationWarning }

// NewPartialReservationWarningEvent builds the companion warning emitted
// alongside InventoryReserved when strategy=Partial came up short.
func NewPartialReservationWarningEvent(itemID, locationID int64, lines []ReservationLine) PartialReservationWarningEvent {
	return PartialReservationWarningEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Lines: lines}
}

// InventoryReleasedEvent records a reservation release.
type InventoryReleasedEvent struct {
	baseEvent
	LocationID int64
	Quantity   int64
	ReferenceID string
}

// Kind implements Event.
func (InventoryReleasedEvent) Kind() EventKind { return EventInventoryReleased }

// NewInventoryReleasedEvent builds the event for a Release write.
func NewInventoryReleasedEvent(itemID, locationID, quantity int64, referenceID string) InventoryReleasedEvent {
	return InventoryReleasedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Quantity: quantity, ReferenceID: referenceID}
}

// InventoryAllocatedEvent records consumption of a reservation into on-hand.
type InventoryAllocatedEvent struct {
	baseEvent
	LocationID int64
	Quantity   int64
	ReferenceID string
}

// Kind implements Event.
func (InventoryAllocatedEvent) Kind() EventKind { return EventInventoryAllocated }

// NewInventoryAllocatedEvent builds the event for an Allocate write.
func NewInventoryAllocatedEvent(itemID, locationID, quantity int64, referenceID string) InventoryAllocatedEvent {
	return InventoryAllocatedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Quantity: quantity, ReferenceID: referenceID}
}

// InventoryDeallocatedEvent records an allocation reversal.
type InventoryDeallocatedEvent struct {
	baseEvent
	LocationID int64
	Quantity   int64
	ReferenceID string
}

// Kind implements Event.
func (InventoryDeallocatedEvent) Kind() EventKind { return EventInventoryDeallocated }

// NewInventoryDeallocatedEvent builds the event for an allocation reversal.
func NewInventoryDeallocatedEvent(itemID, locationID, quantity int64, referenceID string) InventoryDeallocatedEvent {
	return InventoryDeallocatedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Quantity: quantity, ReferenceID: referenceID}
}

// InventoryReceivedEvent records inbound receipt of stock (e.g. from an ASN).
type InventoryReceivedEvent struct {
	baseEvent
	LocationID int64
	Quantity   int64
	ReferenceID string
}

// Kind implements Event.
func (InventoryReceivedEvent) Kind() EventKind { return EventInventoryReceived }

// NewInventoryReceivedEvent builds the event for an inbound receipt (e.g.
// an ASN delivery driving an Adjust with reason RECEIVE).
func NewInventoryReceivedEvent(itemID, locationID, quantity int64, referenceID string) InventoryReceivedEvent {
	return InventoryReceivedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Quantity: quantity, ReferenceID: referenceID}
}

// InventoryTransferredEvent records an item/location-to-location transfer.
type InventoryTransferredEvent struct {
	baseEvent
	FromLocationID int64
	ToLocationID   int64
	Quantity       int64
}

// Kind implements Event.
func (InventoryTransferredEvent) Kind() EventKind { return EventInventoryTransferred }

// NewInventoryTransferredEvent builds the event for a Transfer write, keyed
// on the item and its source location.
func NewInventoryTransferredEvent(itemID, fromLocationID, toLocationID, quantity int64) InventoryTransferredEvent {
	return InventoryTransferredEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, fromLocationID)}, FromLocationID: fromLocationID, ToLocationID: toLocationID, Quantity: quantity}
}

// InventoryCycleCountCompletedEvent records a cycle-count overwrite.
type InventoryCycleCountCompletedEvent struct {
	baseEvent
	LocationID   int64
	PreviousQty  int64
	CountedQty   int64
}

// Kind implements Event.
func (InventoryCycleCountCompletedEvent) Kind() EventKind { return EventInventoryCycleCountCompleted }

// NewInventoryCycleCountCompletedEvent builds the event for a cycle-count overwrite.
func NewInventoryCycleCountCompletedEvent(itemID, locationID, previousQty, countedQty int64) InventoryCycleCountCompletedEvent {
	return InventoryCycleCountCompletedEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, PreviousQty: previousQty, CountedQty: countedQty}
}

// InventoryLevelSetEvent records a direct level-set operation.
type InventoryLevelSetEvent struct {
	baseEvent
	LocationID int64
	NewQuantity int64
}

// Kind implements Event.
func (InventoryLevelSetEvent) Kind() EventKind { return EventInventoryLevelSet }

// NewInventoryLevelSetEvent builds the event for a direct on-hand level set
// (distinct from Adjust: it replaces on_hand rather than deltaing it).
func NewInventoryLevelSetEvent(itemID, locationID, newQuantity int64) InventoryLevelSetEvent {
	return InventoryLevelSetEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, NewQuantity: newQuantity}
}

// InventorySafetyStockAlertEvent is emitted by the low-stock derivation.
type InventorySafetyStockAlertEvent struct {
	baseEvent
	LocationID int64
	Available  int64
	Threshold  int64
}

// Kind implements Event.
func (InventorySafetyStockAlertEvent) Kind() EventKind { return EventInventorySafetyStockAlert }

// NewInventorySafetyStockAlertEvent builds the event emitted by the
// low-stock derivation for a balance under threshold.
func NewInventorySafetyStockAlertEvent(itemID, locationID, available, threshold int64) InventorySafetyStockAlertEvent {
	return InventorySafetyStockAlertEvent{baseEvent: baseEvent{ID: BalanceKey(itemID, locationID)}, LocationID: locationID, Available: available, Threshold: threshold}
}

// ASNCreatedEvent is emitted when a new ASN is persisted.
type ASNCreatedEvent struct {
	baseEvent
	SupplierID       string
	PurchaseOrderID  string
}

// Kind implements Event.
func (ASNCreatedEvent) Kind() EventKind { return EventASNCreated }

// NewASNCreatedEvent builds the event emitted once a new ASN commits.
func NewASNCreatedEvent(asnID, supplierID, purchaseOrderID string) ASNCreatedEvent {
	return ASNCreatedEvent{baseEvent: baseEvent{ID: asnID}, SupplierID: supplierID, PurchaseOrderID: purchaseOrderID}
}

// ASNStatusChangedEvent covers every ASN transition.
type ASNStatusChangedEvent struct {
	baseEvent
	kind EventKind
	From ASNStatus
	To   ASNStatus
}

// Kind implements Event.
func (e ASNStatusChangedEvent) Kind() EventKind { return e.kind }

// NewASNStatusChangedEvent builds the event for a specific transition kind.
func NewASNStatusChangedEvent(kind EventKind, asnID string, from, to ASNStatus) ASNStatusChangedEvent {
	return ASNStatusChangedEvent{baseEvent: baseEvent{ID: asnID}, kind: kind, From: from, To: to}
}

// ASNItemChangedEvent covers ItemAdded/ItemRemoved.
type ASNItemChangedEvent struct {
	baseEvent
	kind            EventKind
	InventoryItemID int64
	Quantity        int64
}

// Kind implements Event.
func (e ASNItemChangedEvent) Kind() EventKind { return e.kind }

// NewASNItemAddedEvent builds an ASNItemAdded event.
func NewASNItemAddedEvent(asnID string, itemID int64, qty int64) ASNItemChangedEvent {
	return ASNItemChangedEvent{baseEvent: baseEvent{ID: asnID}, kind: EventASNItemAdded, InventoryItemID: itemID, Quantity: qty}
}

// NewASNItemRemovedEvent builds an ASNItemRemoved event.
func NewASNItemRemovedEvent(asnID string, itemID int64, qty int64) ASNItemChangedEvent {
	return ASNItemChangedEvent{baseEvent: baseEvent{ID: asnID}, kind: EventASNItemRemoved, InventoryItemID: itemID, Quantity: qty}
}

// ASNSupplierNotifiedEvent is the second event emitted on cancellation when
// notify_supplier is set (spec.md §4.8).
type ASNSupplierNotifiedEvent struct {
	baseEvent
	SupplierID string
	Reason     string
}

// Kind implements Event.
func (ASNSupplierNotifiedEvent) Kind() EventKind { return EventASNSupplierNotified }

// NewASNSupplierNotifiedEvent builds the second event emitted on cancel when
// notify_supplier is set.
func NewASNSupplierNotifiedEvent(asnID, supplierID, reason string) ASNSupplierNotifiedEvent {
	return ASNSupplierNotifiedEvent{baseEvent: baseEvent{ID: asnID}, SupplierID: supplierID, Reason: reason}
}

// WorkOrderCreatedEvent is emitted when a new work order is persisted.
type WorkOrderCreatedEvent struct {
	baseEvent
	BOMID string
	Title string
}

// Kind implements Event.
func (WorkOrderCreatedEvent) Kind() EventKind { return EventWorkOrderCreated }

// NewWorkOrderCreatedEvent builds the event emitted once a new work order commits.
func NewWorkOrderCreatedEvent(workOrderID, bomID, title string) WorkOrderCreatedEvent {
	return WorkOrderCreatedEvent{baseEvent: baseEvent{ID: workOrderID}, BOMID: bomID, Title: title}
}

// WorkOrderStatusChangedEvent covers every work order status transition.
type WorkOrderStatusChangedEvent struct {
	baseEvent
	kind    EventKind
	From    WorkOrderStatus
	To      WorkOrderStatus
	Version int64
}

// Kind implements Event.
func (e WorkOrderStatusChangedEvent) Kind() EventKind { return e.kind }

// NewWorkOrderStatusChangedEvent builds the event for a specific transition kind.
func NewWorkOrderStatusChangedEvent(kind EventKind, woID string, from, to WorkOrderStatus, version int64) WorkOrderStatusChangedEvent {
	return WorkOrderStatusChangedEvent{baseEvent: baseEvent{ID: woID}, kind: kind, From: from, To: to, Version: version}
}

// WorkOrderAssignmentChangedEvent covers Assigned/Unassigned.
type WorkOrderAssignmentChangedEvent struct {
	baseEvent
	kind       EventKind
	AssigneeID string
}

// Kind implements Event.
func (e WorkOrderAssignmentChangedEvent) Kind() EventKind { return e.kind }

// NewWorkOrderAssignedEvent builds a WorkOrderAssigned event.
func NewWorkOrderAssignedEvent(woID, assigneeID string) WorkOrderAssignmentChangedEvent {
	return WorkOrderAssignmentChangedEvent{baseEvent: baseEvent{ID: woID}, kind: EventWorkOrderAssigned, AssigneeID: assigneeID}
}

// NewWorkOrderUnassignedEvent builds a WorkOrderUnassigned event.
func NewWorkOrderUnassignedEvent(woID string) WorkOrderAssignmentChangedEvent {
	return WorkOrderAssignmentChangedEvent{baseEvent: baseEvent{ID: woID}, kind: EventWorkOrderUnassigned}
}

// WorkOrderScheduledEvent records a (re)schedule.
type WorkOrderScheduledEvent struct {
	baseEvent
	DueDate time.Time
}

// Kind implements Event.
func (WorkOrderScheduledEvent) Kind() EventKind { return EventWorkOrderScheduled }

// NewWorkOrderScheduledEvent builds the event for a (re)schedule.
func NewWorkOrderScheduledEvent(workOrderID string, dueDate time.Time) WorkOrderScheduledEvent {
	return WorkOrderScheduledEvent{baseEvent: baseEvent{ID: workOrderID}, DueDate: dueDate}
}

// WorkOrderNoteAddedEvent records an append-only note.
type WorkOrderNoteAddedEvent struct {
	baseEvent
	Note string
}

// Kind implements Event.
func (WorkOrderNoteAddedEvent) Kind() EventKind { return EventWorkOrderNoteAdded }

// NewWorkOrderNoteAddedEvent builds the event for an append-only note.
func NewWorkOrderNoteAddedEvent(workOrderID, note string) WorkOrderNoteAddedEvent {
	return WorkOrderNoteAddedEvent{baseEvent: baseEvent{ID: workOrderID}, Note: note}
}

// ReturnStatusChangedEvent covers every return status transition, including
// Created (From == "").
type ReturnStatusChangedEvent struct {
	baseEvent
	kind EventKind
	From ReturnStatus
	To   ReturnStatus
}

// Kind implements Event.
func (e ReturnStatusChangedEvent) Kind() EventKind { return e.kind }

// NewReturnStatusChangedEvent builds the event for a specific transition kind.
func NewReturnStatusChangedEvent(kind EventKind, returnID string, from, to ReturnStatus) ReturnStatusChangedEvent {
	return ReturnStatusChangedEvent{baseEvent: baseEvent{ID: returnID}, kind: kind, From: from, To: to}
}

// WarrantyCreatedEvent is emitted when a warranty is registered.
type WarrantyCreatedEvent struct {
	baseEvent
	ProductID  string
	CustomerID string
}

// Kind implements Event.
func (WarrantyCreatedEvent) Kind() EventKind { return EventWarrantyCreated }

// NewWarrantyCreatedEvent builds the event emitted once a warranty is registered.
func NewWarrantyCreatedEvent(warrantyID, productID, customerID string) WarrantyCreatedEvent {
	return WarrantyCreatedEvent{baseEvent: baseEvent{ID: warrantyID}, ProductID: productID, CustomerID: customerID}
}

// WarrantyClaimEvent covers Claimed/ClaimApproved/ClaimRejected.
type WarrantyClaimEvent struct {
	baseEvent
	kind       EventKind
	WarrantyID string
	ClaimID    string
}

// Kind implements Event.
func (e WarrantyClaimEvent) Kind() EventKind { return e.kind }

// NewWarrantyClaimEvent builds a claim-lifecycle event of the given kind.
func NewWarrantyClaimEvent(kind EventKind, warrantyID, claimID string) WarrantyClaimEvent {
	return WarrantyClaimEvent{baseEvent: baseEvent{ID: claimID}, kind: kind, WarrantyID: warrantyID, ClaimID: claimID}
}

// PaymentEvent covers Authorized/Captured/Refunded/Failed/Voided.
type PaymentEvent struct {
	baseEvent
	kind     EventKind
	OrderID  string
	Amount   float64
	Currency string
}

// Kind implements Event.
func (e PaymentEvent) Kind() EventKind { return e.kind }

// NewPaymentEvent builds a payment-outcome event of the given kind.
func NewPaymentEvent(kind EventKind, paymentID, orderID string, amount float64, currency string) PaymentEvent {
	return PaymentEvent{baseEvent: baseEvent{ID: paymentID}, kind: kind, OrderID: orderID, Amount: amount, Currency: currency}
}

// WithDataEvent is the opaque fallback the outbox mapper returns for an
// event_type it does not recognize (spec.md §4.3 step 2); it never panics,
// never drops the row.
type WithDataEvent struct {
	baseEvent
	EventType string
	Data      map[string]any
}

// Kind implements Event.
func (e WithDataEvent) Kind() EventKind { return EventKind(e.EventType) }

// NewWithDataEvent builds the opaque fallback for an event_type the outbox
// mapper does not recognize.
func NewWithDataEvent(aggregateID, eventType string, data map[string]any) WithDataEvent {
	return WithDataEvent{baseEvent: baseEvent{ID: aggregateID}, EventType: eventType, Data: data}
}
