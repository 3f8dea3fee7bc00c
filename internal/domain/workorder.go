package domain

import "time"

// WorkOrderPriority is the priority of a work order.
type WorkOrderPriority string

// Work order priorities.
const (
	PriorityLow    WorkOrderPriority = "low"
	PriorityNormal WorkOrderPriority = "normal"
	PriorityHigh   WorkOrderPriority = "high"
	PriorityUrgent WorkOrderPriority = "urgent"
)

// WorkOrderStatus is the status of a work order.
type WorkOrderStatus string

// Work order statuses.
const (
	WOPending    WorkOrderStatus = "pending"
	WOScheduled  WorkOrderStatus = "scheduled"
	WOInProgress WorkOrderStatus = "in_progress"
	WOPicked     WorkOrderStatus = "picked"
	WOIssued     WorkOrderStatus = "issued"
	WOYielded    WorkOrderStatus = "yielded"
	WOCompleted  WorkOrderStatus = "completed"
	WOCancelled  WorkOrderStatus = "cancelled"
)

// workOrderTransitions is the legal transition matrix from spec.md §4.7.
var workOrderTransitions = map[WorkOrderStatus]map[WorkOrderStatus]bool{
	WOPending:    {WOScheduled: true, WOIssued: true, WOCancelled: true},
	WOScheduled:  {WOInProgress: true, WOCancelled: true},
	WOIssued:     {WOPicked: true, WOCancelled: true},
	WOPicked:     {WOYielded: true, WOInProgress: true},
	WOInProgress: {WOCompleted: true, WOYielded: true, WOCancelled: true},
	WOYielded:    {WOCompleted: true},
}

// CanTransitionWorkOrder reports whether (from, to) is legal.
func CanTransitionWorkOrder(from, to WorkOrderStatus) bool {
	return workOrderTransitions[from][to]
}

// WorkOrderTerminal reports whether status has no further legal transitions.
func WorkOrderTerminal(s WorkOrderStatus) bool {
	return s == WOCompleted || s == WOCancelled
}

// WorkOrder is the optimistically-locked work-order aggregate root.
type WorkOrder struct {
	WorkOrderID     string
	BOMID           string
	Title           string
	Description     string
	Priority        WorkOrderPriority
	Status          WorkOrderStatus
	AssigneeID      string
	DueDate         *time.Time
	EstimatedHours  float64
	ActualHours     float64
	Version         int64
	ScheduledAt     *time.Time
	StartedAt       *time.Time
	YieldedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkOrderNote is an append-only note attached to a work order.
type WorkOrderNote struct {
	NoteID      string
	WorkOrderID string
	Note        string
	CreatedAt   time.Time
}

// BOMItem is a single component line in a bill of materials, read-only input
// to the cost calculations in §4.7.
type BOMItem struct {
	BOMID           string
	ComponentItemID int64
	QuantityPer     float64
}

// ManufacturingCostRecord is a per-component recorded cost, read-only input
// to the cost calculations in §4.7.
type ManufacturingCostRecord struct {
	ID              string
	WorkOrderID     string
	ComponentItemID int64
	UnitCost        float64
	RecordedAt      time.Time
}
