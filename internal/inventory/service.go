// Package inventory implements the Inventory Engine (C5, spec.md §4.5):
// balance adjustment, reservation, allocation, transfer, cycle-count and the
// low-stock derivation, each run through the C4 command framework so every
// write is transactional, outbox-backed, and metered the same way as every
// other aggregate in this module.
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/adapter/cache"
	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is the C5 Inventory Engine: reads and commands over
// domain.InventoryRepository, wired through the shared command.Deps.
type Service struct {
	deps   command.Deps
	repo   domain.InventoryRepository
	resDur time.Duration
	lowStk int64
	cache  *cache.BalanceCache
}

// AttachCache wires the optional balance cache (spec.md §9) in front of
// GetBalance. A nil cache (or never calling AttachCache at all) leaves the
// Service reading straight through to repo, which is a valid deployment —
// the cache is optional infrastructure, not load-bearing.
func (s *Service) AttachCache(c *cache.BalanceCache) {
	s.cache = c
}

// NewService constructs the Inventory Engine. reservationDays is the
// default reservation duration (spec.md §4.5 "default 7"); lowStockThreshold
// is the default threshold the low-stock derivation uses.
func NewService(deps command.Deps, repo domain.InventoryRepository, reservationDays int, lowStockThreshold int64) *Service {
	if reservationDays <= 0 {
		reservationDays = 7
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &Service{deps: deps, repo: repo, resDur: time.Duration(reservationDays) * 24 * time.Hour, lowStk: lowStockThreshold}
}

// GetSnapshot implements the read-only "totals across locations" view.
func (s *Service) GetSnapshot(ctx domain.Context, itemID int64) (domain.InventorySnapshot, error) {
	balances, err := s.repo.ListBalances(ctx, itemID)
	if err != nil {
		return domain.InventorySnapshot{}, fmt.Errorf("op=inventory.get_snapshot: %w", err)
	}
	snap := domain.InventorySnapshot{InventoryItemID: itemID, PerLocation: balances}
	for _, b := range balances {
		snap.TotalOnHand += b.QuantityOnHand
		snap.TotalAllocated += b.QuantityAllocated
		snap.TotalAvailable += b.QuantityAvailable
	}
	return snap, nil
}

// GetBalance implements the read-only per-location balance view. When a
// cache is attached it serves a hit directly and otherwise loads through
// the cache (spec.md §9); the underlying repository read and its error
// wrapping are unchanged either way.
func (s *Service) GetBalance(ctx domain.Context, itemID, locationID int64) (domain.LocationBalance, error) {
	reader := repoBalanceReader{s.repo}
	if s.cache != nil {
		return s.cache.GetOrLoad(ctx, itemID, locationID, reader)
	}
	return reader.GetBalance(ctx, itemID, locationID)
}

// repoBalanceReader adapts domain.InventoryRepository to cache.BalanceReader
// so GetOrLoad's fallthrough wraps errors the same way a direct GetBalance
// call does.
type repoBalanceReader struct {
	repo domain.InventoryRepository
}

func (r repoBalanceReader) GetBalance(ctx domain.Context, itemID, locationID int64) (domain.LocationBalance, error) {
	b, err := r.repo.GetBalance(ctx, nil, itemID, locationID)
	if err != nil {
		return domain.LocationBalance{}, fmt.Errorf("op=inventory.get_balance: %w", err)
	}
	return b, nil
}

// ListLowStock is the read-only low-stock derivation (spec.md §4.5): no
// separate state, just balances under threshold.
func (s *Service) ListLowStock(ctx domain.Context, threshold int64) ([]domain.LocationBalance, error) {
	if threshold <= 0 {
		threshold = s.lowStk
	}
	balances, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("op=inventory.list_low_stock: %w", err)
	}
	return balances, nil
}

// balanceOrZero reads the balance row for update, treating a not-found row
// as a zero balance so a first-ever Adjust with Δ>0 can create it.
func (s *Service) balanceOrZero(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	b, err := s.repo.GetBalanceForUpdate(ctx, tx, itemID, locationID)
	if err == nil {
		return b, nil
	}
	if !isNotFound(err) {
		return domain.LocationBalance{}, err
	}
	return domain.LocationBalance{InventoryItemID: itemID, LocationID: locationID}, nil
}

func isNotFound(err error) bool {
	return err != nil && (domain.ClassifyFailure(err) == domain.ReasonNotFound)
}

func newID() string { return uuid.New().String() }
