package workorder

import (
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stateset/commerce-core/internal/domain"
)

// maxConcurrentComponentFetches bounds the in-flight component-cost lookups
// a COGS calculation issues (spec.md §4.7's "default 10 in flight").
const maxConcurrentComponentFetches = 10

// COGSResult is the output of CalculateCOGS.
type COGSResult struct {
	WorkOrderID string
	TotalCost   float64
}

// CalculateCOGS is a read-only derivation over the work order's BOM and the
// manufacturing cost records recorded against it within [from, to]: for each
// BOM component it takes the latest recorded unit cost in range and sums
// quantity_per * unit_cost. Component-cost lookups run concurrently, bounded
// to maxConcurrentComponentFetches (grounded on
// original_source/src/commands/workorders/calculate_cogs_command.rs's
// `buffer_unordered(10)` fan-out).
func (s *Service) CalculateCOGS(ctx domain.Context, workOrderID string, from, to time.Time) (COGSResult, error) {
	wo, err := s.repo.Get(ctx, workOrderID)
	if err != nil {
		return COGSResult{}, err
	}
	items, err := s.repo.ListBOMItems(ctx, wo.BOMID)
	if err != nil {
		return COGSResult{}, err
	}
	records, err := s.repo.ListCostRecords(ctx, workOrderID, from.Unix(), to.Unix())
	if err != nil {
		return COGSResult{}, err
	}

	costs := make([]float64, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentComponentFetches)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			_ = gctx
			costs[i] = item.QuantityPer * latestUnitCost(records, item.ComponentItemID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return COGSResult{}, err
	}

	var total float64
	for _, c := range costs {
		total += c
	}
	return COGSResult{WorkOrderID: workOrderID, TotalCost: total}, nil
}

func latestUnitCost(records []domain.ManufacturingCostRecord, componentItemID int64) float64 {
	var latest *domain.ManufacturingCostRecord
	for i := range records {
		r := &records[i]
		if r.ComponentItemID != componentItemID {
			continue
		}
		if latest == nil || r.RecordedAt.After(latest.RecordedAt) {
			latest = r
		}
	}
	if latest == nil {
		return 0
	}
	return latest.UnitCost
}

// WeightedAverageCOGSResult is the output of CalculateWeightedAverageCOGS.
type WeightedAverageCOGSResult struct {
	WorkOrderID             string
	WeightedAverageUnitCost float64
	TotalWeight             float64
}

// CalculateWeightedAverageCOGS derives a weighted-average unit cost across
// every manufacturing cost record in range, weighted by each component's
// BOM quantity_per (grounded on
// original_source/.../calculate_weighted_average_cogs_command.rs's running
// quantity-weighted average, simplified to this repository's available
// BOM + cost-record surface).
func (s *Service) CalculateWeightedAverageCOGS(ctx domain.Context, workOrderID string, from, to time.Time) (WeightedAverageCOGSResult, error) {
	wo, err := s.repo.Get(ctx, workOrderID)
	if err != nil {
		return WeightedAverageCOGSResult{}, err
	}
	items, err := s.repo.ListBOMItems(ctx, wo.BOMID)
	if err != nil {
		return WeightedAverageCOGSResult{}, err
	}
	records, err := s.repo.ListCostRecords(ctx, workOrderID, from.Unix(), to.Unix())
	if err != nil {
		return WeightedAverageCOGSResult{}, err
	}

	weightByComponent := make(map[int64]float64, len(items))
	for _, it := range items {
		weightByComponent[it.ComponentItemID] = it.QuantityPer
	}

	var totalCostWeighted, totalWeight float64
	for _, r := range records {
		w := weightByComponent[r.ComponentItemID]
		if w == 0 {
			w = 1
		}
		totalCostWeighted += r.UnitCost * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return WeightedAverageCOGSResult{WorkOrderID: workOrderID}, nil
	}
	return WeightedAverageCOGSResult{
		WorkOrderID:             workOrderID,
		WeightedAverageUnitCost: totalCostWeighted / totalWeight,
		TotalWeight:             totalWeight,
	}, nil
}

// MonthlyCOGS is one calendar-month bucket of CalculateMonthlyCOGS.
type MonthlyCOGS struct {
	Month     string // "2006-01"
	TotalCost float64
}

// CalculateMonthlyCOGS buckets the same weighted cost-record derivation by
// calendar month across [from, to], grounded on
// original_source/.../calculate_monthly_cogs_command.rs's per-month rollup.
func (s *Service) CalculateMonthlyCOGS(ctx domain.Context, workOrderID string, from, to time.Time) ([]MonthlyCOGS, error) {
	wo, err := s.repo.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListBOMItems(ctx, wo.BOMID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListCostRecords(ctx, workOrderID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}

	weightByComponent := make(map[int64]float64, len(items))
	for _, it := range items {
		weightByComponent[it.ComponentItemID] = it.QuantityPer
	}

	buckets := map[string]float64{}
	var months []string
	for _, r := range records {
		key := r.RecordedAt.Format("2006-01")
		if _, ok := buckets[key]; !ok {
			months = append(months, key)
		}
		w := weightByComponent[r.ComponentItemID]
		if w == 0 {
			w = 1
		}
		buckets[key] += r.UnitCost * w
	}
	sort.Strings(months)

	out := make([]MonthlyCOGS, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyCOGS{Month: m, TotalCost: buckets[m]})
	}
	return out, nil
}
