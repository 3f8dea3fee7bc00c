// Package returns implements the Return lifecycle half of C9 (spec.md
// §4.9): requested/approved/rejected/cancelled/received/refunded/completed,
// with post-completion restock of restock_eligible items wired directly
// into C5's inventory service so the restock write and the return's
// completed transition commit in the same transaction.
package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
	"github.com/stateset/commerce-core/internal/inventory"
)

// Service is C9's command surface over domain.ReturnRepository.
type Service struct {
	deps command.Deps
	repo domain.ReturnRepository
	inv  *inventory.Service
}

// NewService constructs the return aggregate's command surface. inv is used
// only for the post-completion restock step, called in-transaction via
// inv.AdjustInTx rather than through inv.Adjust.
func NewService(deps command.Deps, repo domain.ReturnRepository, inv *inventory.Service) *Service {
	return &Service{deps: deps, repo: repo, inv: inv}
}

// Get returns a Return by id (read-only).
func (s *Service) Get(ctx domain.Context, returnID string) (domain.Return, error) {
	return s.repo.Get(ctx, returnID)
}

// ListItems lists a return's line items (read-only).
func (s *Service) ListItems(ctx domain.Context, returnID string) ([]domain.ReturnItem, error) {
	return s.repo.ListItems(ctx, returnID)
}

func newID() string { return uuid.New().String() }

func now() time.Time { return time.Now().UTC() }
