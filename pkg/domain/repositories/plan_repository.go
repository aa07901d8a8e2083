package repositories

import (
	"context"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// PlanRepository stores plans and the outputs of their runs
type PlanRepository interface {
	SavePlan(ctx context.Context, plan entities.Plan) error
	// SavePlanFrom stores the plan only while the stored copy still has status
	// from; otherwise it fails with entities.ErrInvalidState and stores nothing
	SavePlanFrom(ctx context.Context, plan entities.Plan, from entities.PlanStatus) error
	GetPlan(ctx context.Context, id entities.PlanID) (*entities.Plan, error)
	// ListPlans returns the matching plans ordered by creation time
	ListPlans(ctx context.Context, filter PlanFilter) ([]entities.Plan, error)

	// ReplaceOutputs discards any previous outputs of the plan and stores the new ones
	ReplaceOutputs(ctx context.Context, planID entities.PlanID, outputs entities.PlanOutputs) error
	GetOutputs(ctx context.Context, planID entities.PlanID) (*entities.PlanOutputs, error)

	GetPlannedOrder(ctx context.Context, id string) (*entities.PlannedOrder, error)
	SavePlannedOrder(ctx context.Context, order entities.PlannedOrder) error
	// ListPlannedOrders queries orders across plans, ordered by plan creation then plan sequence
	ListPlannedOrders(ctx context.Context, filter PlannedOrderFilter) ([]entities.PlannedOrder, error)
	// ListCapacityRequirements returns the matching buckets of filter.PlanID in plan sequence
	ListCapacityRequirements(ctx context.Context, filter CapacityFilter) ([]entities.CapacityRequirement, error)

	GetException(ctx context.Context, id string) (*entities.Exception, error)
	SaveException(ctx context.Context, exception entities.Exception) error
}
