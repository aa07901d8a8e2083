package planning

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// ListPlans returns the stored plans passing the filter, oldest first
func (s *Service) ListPlans(ctx context.Context, filter repositories.PlanFilter) ([]entities.Plan, error) {
	return s.deps.Plans.ListPlans(ctx, filter)
}

// ListPlannedOrders queries planned orders across every stored plan
func (s *Service) ListPlannedOrders(ctx context.Context, filter repositories.PlannedOrderFilter) ([]entities.PlannedOrder, error) {
	if filter.PlanID != "" {
		if _, err := s.deps.Plans.GetPlan(ctx, filter.PlanID); err != nil {
			return nil, err
		}
	}
	return s.deps.Plans.ListPlannedOrders(ctx, filter)
}

// WorkCenterLoads summarizes the capacity buckets of a plan per work center,
// ordered by work center id
func (s *Service) WorkCenterLoads(ctx context.Context, filter repositories.CapacityFilter) ([]dto.WorkCenterLoad, error) {
	plan, err := s.deps.Plans.GetPlan(ctx, filter.PlanID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.deps.Plans.ListCapacityRequirements(ctx, filter)
	if err != nil {
		return nil, err
	}

	byCenter := make(map[entities.WorkCenterID]*dto.WorkCenterLoad)
	for _, c := range reqs {
		load, ok := byCenter[c.WorkCenterID]
		if !ok {
			load = &dto.WorkCenterLoad{
				WorkCenterID:    c.WorkCenterID,
				PeriodStart:     c.BucketDate,
				PeriodEnd:       c.BucketDate,
				AvailableHours:  decimal.Zero,
				RequiredHours:   decimal.Zero,
				PeakLoadPercent: c.LoadPercent,
				PeakBucket:      c.BucketDate,
			}
			byCenter[c.WorkCenterID] = load
		}
		load.Buckets++
		load.AvailableHours = load.AvailableHours.Add(c.AvailableHours)
		load.RequiredHours = load.RequiredHours.Add(c.RequiredHours)
		if c.Status >= entities.LoadOverloaded {
			load.OverloadedBuckets++
		}
		if c.LoadPercent.GreaterThan(load.PeakLoadPercent) {
			load.PeakLoadPercent = c.LoadPercent
			load.PeakBucket = c.BucketDate
		}
		if c.BucketDate.Before(load.PeriodStart) {
			load.PeriodStart = c.BucketDate
		}
		if c.BucketDate.After(load.PeriodEnd) {
			load.PeriodEnd = c.BucketDate
		}
	}

	loads := make([]dto.WorkCenterLoad, 0, len(byCenter))
	for _, load := range byCenter {
		// the period ends on the last day of its last bucket
		load.PeriodEnd = entities.AddDays(load.PeriodEnd, plan.Horizon.BucketDays-1)
		if load.PeriodEnd.After(plan.Horizon.End) {
			load.PeriodEnd = plan.Horizon.End
		}
		load.LoadPercent = entities.LoadPercent(load.RequiredHours, load.AvailableHours)
		load.IsOverloaded = load.RequiredHours.GreaterThan(load.AvailableHours)
		if s.deps.WorkCenters != nil {
			wc, err := s.deps.WorkCenters.GetWorkCenter(ctx, load.WorkCenterID)
			switch {
			case err == nil:
				load.Name = wc.Name
			case !errors.Is(err, entities.ErrNotFound):
				return nil, err
			}
		}
		loads = append(loads, *load)
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].WorkCenterID < loads[j].WorkCenterID })
	return loads, nil
}
