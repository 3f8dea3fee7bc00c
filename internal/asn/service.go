// Package asn implements the ASN Aggregate (C8, spec.md §4.8): the same
// optimistic-locking discipline as internal/workorder, applied to inbound
// shipment lifecycle, item/package management, and lifecycle notes.
package asn

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is C8's command surface over domain.ASNRepository.
type Service struct {
	deps command.Deps
	repo domain.ASNRepository
}

// NewService constructs the ASN aggregate's command surface.
func NewService(deps command.Deps, repo domain.ASNRepository) *Service {
	return &Service{deps: deps, repo: repo}
}

// Get returns an ASN by id (read-only).
func (s *Service) Get(ctx domain.Context, asnID string) (domain.ASN, error) {
	return s.repo.Get(ctx, asnID)
}

func newID() string { return uuid.New().String() }

func now() time.Time { return time.Now().UTC() }
