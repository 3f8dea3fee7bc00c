package domain

import (
	"encoding/json"
	"time"
)

// OutboxStatus is the lifecycle status of an outbox row.
type OutboxStatus string

// Outbox statuses.
const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDelivered  OutboxStatus = "delivered"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxEvent is a durable queue row co-located with the aggregate write
// that produced it (spec.md §4.3, §6). Its id is a ULID (generated by
// OutboxRepo.Enqueue in internal/adapter/repo/postgres) so claim order by
// id agrees with claim order by CreatedAt.
type OutboxEvent struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	Status        OutboxStatus
	Attempts      int
	AvailableAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
	ErrorMessage  *string
}
