// Package warranty implements the Warranty lifecycle half of C9 (spec.md
// §4.9): registration, lazily-derived expiry, and independent claim rows
// gated on the parent warranty's effective status and customer match.
package warranty

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is C9's command surface over domain.WarrantyRepository.
type Service struct {
	deps command.Deps
	repo domain.WarrantyRepository
}

// NewService constructs the warranty aggregate's command surface.
func NewService(deps command.Deps, repo domain.WarrantyRepository) *Service {
	return &Service{deps: deps, repo: repo}
}

// Get returns a warranty by id with its status recomputed against the
// current time — Status on the returned value reflects EffectiveStatus, not
// necessarily the stored column (spec.md §4.9's "expired is derived, not
// stored transition").
func (s *Service) Get(ctx domain.Context, warrantyID string) (domain.Warranty, error) {
	w, err := s.repo.Get(ctx, warrantyID)
	if err != nil {
		return domain.Warranty{}, err
	}
	w.Status = w.EffectiveStatus(now())
	return w, nil
}

func newID() string { return uuid.New().String() }

func now() time.Time { return time.Now().UTC() }
