// Package workorder implements the Work-Order Aggregate (C7, spec.md §4.7):
// optimistic-locked status transitions, assignment/scheduling, notes, and
// the read-only COGS/weighted-average/monthly cost derivations.
package workorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is C7's command surface over domain.WorkOrderRepository.
type Service struct {
	deps command.Deps
	repo domain.WorkOrderRepository
}

// NewService constructs the Work-Order aggregate's command surface.
func NewService(deps command.Deps, repo domain.WorkOrderRepository) *Service {
	return &Service{deps: deps, repo: repo}
}

// Get returns a work order by id (read-only).
func (s *Service) Get(ctx domain.Context, workOrderID string) (domain.WorkOrder, error) {
	return s.repo.Get(ctx, workOrderID)
}

func newID() string { return uuid.New().String() }

func now() time.Time { return time.Now().UTC() }
