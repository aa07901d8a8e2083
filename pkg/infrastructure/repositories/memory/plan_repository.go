package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// PlanRepository keeps plans and their run outputs in memory
type PlanRepository struct {
	mu         sync.RWMutex
	plans      map[entities.PlanID]entities.Plan
	outputs    map[entities.PlanID]*entities.PlanOutputs
	orderIndex map[string]entities.PlanID
	excIndex   map[string]entities.PlanID
}

// NewPlanRepository creates a new in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		plans:      make(map[entities.PlanID]entities.Plan),
		outputs:    make(map[entities.PlanID]*entities.PlanOutputs),
		orderIndex: make(map[string]entities.PlanID),
		excIndex:   make(map[string]entities.PlanID),
	}
}

// Verify interface compliance
var _ repositories.PlanRepository = (*PlanRepository)(nil)

// SavePlan inserts or replaces a plan
func (r *PlanRepository) SavePlan(_ context.Context, plan entities.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan
	return nil
}

// SavePlanFrom replaces a plan whose stored status is still from
func (r *PlanRepository) SavePlanFrom(_ context.Context, plan entities.Plan, from entities.PlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.plans[plan.ID]
	if !ok {
		return fmt.Errorf("plan %s: %w", plan.ID, entities.ErrNotFound)
	}
	if current.Status != from {
		return fmt.Errorf("%w: plan %s is %s, not %s", entities.ErrInvalidState, plan.ID, current.Status, from)
	}
	r.plans[plan.ID] = plan
	return nil
}

// GetPlan returns a plan by id
func (r *PlanRepository) GetPlan(_ context.Context, id entities.PlanID) (*entities.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, entities.ErrNotFound)
	}
	return &plan, nil
}

// ListPlans returns the matching plans ordered by creation time
func (r *PlanRepository) ListPlans(_ context.Context, filter repositories.PlanFilter) ([]entities.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedPlans(filter), nil
}

func (r *PlanRepository) sortedPlans(filter repositories.PlanFilter) []entities.Plan {
	plans := make([]entities.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		if filter.Matches(p) {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].ID < plans[j].ID
		}
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})
	return plans
}

// ListPlannedOrders collects matching orders across plans
func (r *PlanRepository) ListPlannedOrders(_ context.Context, filter repositories.PlannedOrderFilter) ([]entities.PlannedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var orders []entities.PlannedOrder
	for _, p := range r.sortedPlans(repositories.PlanFilter{}) {
		if filter.PlanID != "" && p.ID != filter.PlanID {
			continue
		}
		out, ok := r.outputs[p.ID]
		if !ok {
			continue
		}
		for _, o := range out.PlannedOrders {
			if filter.Matches(o) {
				orders = append(orders, o)
			}
		}
	}
	return orders, nil
}

// ListCapacityRequirements returns the matching buckets of one plan
func (r *PlanRepository) ListCapacityRequirements(_ context.Context, filter repositories.CapacityFilter) ([]entities.CapacityRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.outputs[filter.PlanID]
	if !ok {
		return nil, nil
	}
	var reqs []entities.CapacityRequirement
	for _, c := range out.CapacityRequirements {
		if filter.Matches(c) {
			reqs = append(reqs, c)
		}
	}
	return reqs, nil
}

// ReplaceOutputs swaps in a run's outputs for the plan
func (r *PlanRepository) ReplaceOutputs(_ context.Context, planID entities.PlanID, outputs entities.PlanOutputs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.outputs[planID]; ok {
		for _, o := range old.PlannedOrders {
			delete(r.orderIndex, o.ID)
		}
		for _, e := range old.Exceptions {
			delete(r.excIndex, e.ID)
		}
	}
	copied := entities.PlanOutputs{
		Requirements:         append([]entities.Requirement(nil), outputs.Requirements...),
		PlannedOrders:        append([]entities.PlannedOrder(nil), outputs.PlannedOrders...),
		CapacityRequirements: append([]entities.CapacityRequirement(nil), outputs.CapacityRequirements...),
		Exceptions:           append([]entities.Exception(nil), outputs.Exceptions...),
	}
	for _, o := range copied.PlannedOrders {
		r.orderIndex[o.ID] = planID
	}
	for _, e := range copied.Exceptions {
		r.excIndex[e.ID] = planID
	}
	r.outputs[planID] = &copied
	return nil
}

// GetOutputs returns a copy of the plan's stored outputs
func (r *PlanRepository) GetOutputs(_ context.Context, planID entities.PlanID) (*entities.PlanOutputs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.outputs[planID]
	if !ok {
		return &entities.PlanOutputs{}, nil
	}
	return &entities.PlanOutputs{
		Requirements:         append([]entities.Requirement(nil), out.Requirements...),
		PlannedOrders:        append([]entities.PlannedOrder(nil), out.PlannedOrders...),
		CapacityRequirements: append([]entities.CapacityRequirement(nil), out.CapacityRequirements...),
		Exceptions:           append([]entities.Exception(nil), out.Exceptions...),
	}, nil
}

// GetPlannedOrder finds an order across all plans
func (r *PlanRepository) GetPlannedOrder(_ context.Context, id string) (*entities.PlannedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	planID, ok := r.orderIndex[id]
	if !ok {
		return nil, fmt.Errorf("planned order %s: %w", id, entities.ErrNotFound)
	}
	for _, o := range r.outputs[planID].PlannedOrders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("planned order %s: %w", id, entities.ErrNotFound)
}

// SavePlannedOrder replaces a stored order
func (r *PlanRepository) SavePlannedOrder(_ context.Context, order entities.PlannedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	planID, ok := r.orderIndex[order.ID]
	if !ok {
		return fmt.Errorf("planned order %s: %w", order.ID, entities.ErrNotFound)
	}
	orders := r.outputs[planID].PlannedOrders
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = order
			return nil
		}
	}
	return fmt.Errorf("planned order %s: %w", order.ID, entities.ErrNotFound)
}

// GetException finds an exception across all plans
func (r *PlanRepository) GetException(_ context.Context, id string) (*entities.Exception, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	planID, ok := r.excIndex[id]
	if !ok {
		return nil, fmt.Errorf("exception %s: %w", id, entities.ErrNotFound)
	}
	for _, e := range r.outputs[planID].Exceptions {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("exception %s: %w", id, entities.ErrNotFound)
}

// SaveException replaces a stored exception
func (r *PlanRepository) SaveException(_ context.Context, exception entities.Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	planID, ok := r.excIndex[exception.ID]
	if !ok {
		return fmt.Errorf("exception %s: %w", exception.ID, entities.ErrNotFound)
	}
	excs := r.outputs[planID].Exceptions
	for i := range excs {
		if excs[i].ID == exception.ID {
			excs[i] = exception
			return nil
		}
	}
	return fmt.Errorf("exception %s: %w", exception.ID, entities.ErrNotFound)
}
