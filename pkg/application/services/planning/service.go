// Package planning coordinates plan lifecycles: creating plans, running MRP
// and CRP passes, and the human actions taken on their outputs.
package planning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/events"
)

// RunObserver is told about every finished run
type RunObserver interface {
	ObserveRun(plan entities.Plan, outputs entities.PlanOutputs)
}

// Dependencies are the collaborators of the planning service
type Dependencies struct {
	Items       repositories.ItemRepository
	Structures  repositories.StructureRepository
	Inventory   repositories.InventoryRepository
	Demand      repositories.DemandRepository
	WorkCenters repositories.WorkCenterRepository
	Plans       repositories.PlanRepository

	Events   events.EventStore // optional
	Observer RunObserver       // optional
	Clock    shared.Clock
	IDs      shared.IDGenerator
	Logger   *zap.Logger
}

// Config holds run settings
type Config struct {
	// Workers bounds intra-wave and capacity loading parallelism; 0 means one per CPU
	Workers int
	// Deadline bounds a whole run; 0 means no deadline
	Deadline time.Duration
}

// Service coordinates plan runs and lifecycle actions
type Service struct {
	deps   Dependencies
	config Config
	logger *zap.Logger
}

// NewService creates a planning service
func NewService(deps Dependencies, config Config) *Service {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.IDs == nil {
		deps.IDs = shared.UUIDGenerator{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{deps: deps, config: config, logger: deps.Logger}
}

// CreatePlanRequest describes a new plan
type CreatePlanRequest struct {
	Number   string
	Type     entities.PlanType
	Horizon  entities.Horizon
	Policy   entities.PlanningPolicy
	Capacity entities.CapacityPolicy
	// SourcePlanID is required for CRP plans and names the MRP plan whose orders are loaded
	SourcePlanID entities.PlanID
}

// CreatePlan stores a new Draft plan
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*entities.Plan, error) {
	if err := req.Capacity.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if req.Type == entities.CRPPlan {
		if req.SourcePlanID == "" {
			return nil, fmt.Errorf("%w: a CRP plan needs a source MRP plan", entities.ErrValidation)
		}
		source, err := s.deps.Plans.GetPlan(ctx, req.SourcePlanID)
		if err != nil {
			return nil, fmt.Errorf("source plan: %w", err)
		}
		if source.Type != entities.MRPPlan {
			return nil, fmt.Errorf("%w: source plan %s is not an MRP plan", entities.ErrValidation, source.ID)
		}
	}

	plan, evs, err := entities.NewPlan(entities.PlanID(s.deps.IDs.NewID()), req.Number, req.Type,
		req.Horizon, req.Policy, req.Capacity, s.deps.Clock.Now())
	if err != nil {
		return nil, err
	}
	plan.SourcePlanID = req.SourcePlanID

	if err := s.deps.Plans.SavePlan(ctx, *plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	s.publish(plan.ID, evs)
	s.logger.Info("plan created",
		zap.String("plan", string(plan.ID)),
		zap.String("number", plan.Number),
		zap.String("type", plan.Type.String()))
	return plan, nil
}

// GetPlan returns a plan by id
func (s *Service) GetPlan(ctx context.Context, id entities.PlanID) (*entities.Plan, error) {
	return s.deps.Plans.GetPlan(ctx, id)
}

// GetOutputs returns the requirements, orders, capacity loads and exceptions of a plan
func (s *Service) GetOutputs(ctx context.Context, id entities.PlanID) (*entities.PlanOutputs, error) {
	if _, err := s.deps.Plans.GetPlan(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Plans.GetOutputs(ctx, id)
}

// ApprovePlan approves a Completed plan
func (s *Service) ApprovePlan(ctx context.Context, id entities.PlanID, approvedBy string) (*entities.Plan, error) {
	return s.transition(ctx, id, func(p entities.Plan, now time.Time) (entities.Plan, []entities.DomainEvent, error) {
		return p.Approve(now, approvedBy)
	})
}

// CancelPlan cancels a plan that is not running and not yet approved
func (s *Service) CancelPlan(ctx context.Context, id entities.PlanID, reason string) (*entities.Plan, error) {
	return s.transition(ctx, id, func(p entities.Plan, now time.Time) (entities.Plan, []entities.DomainEvent, error) {
		return p.Cancel(now, reason)
	})
}

// RedraftPlan returns a Failed plan to Draft so it can be run again
func (s *Service) RedraftPlan(ctx context.Context, id entities.PlanID) (*entities.Plan, error) {
	return s.transition(ctx, id, func(p entities.Plan, now time.Time) (entities.Plan, []entities.DomainEvent, error) {
		return p.Redraft(now)
	})
}

type planTransition func(entities.Plan, time.Time) (entities.Plan, []entities.DomainEvent, error)

// transition applies a pure plan transition and persists it only if no other
// change landed in between; a rejected transition leaves the stored plan untouched
func (s *Service) transition(ctx context.Context, id entities.PlanID, apply planTransition) (*entities.Plan, error) {
	plan, err := s.deps.Plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	next, evs, err := apply(*plan, s.deps.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Plans.SavePlanFrom(ctx, next, plan.Status); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	s.publish(id, evs)
	s.logger.Info("plan status changed",
		zap.String("plan", string(id)),
		zap.String("from", plan.Status.String()),
		zap.String("to", next.Status.String()))
	return &next, nil
}

// publish appends events to the plan's stream; failures are logged since
// the state change they describe has already been stored
func (s *Service) publish(planID entities.PlanID, evs []entities.DomainEvent) {
	if s.deps.Events == nil || len(evs) == 0 {
		return
	}
	if err := s.deps.Events.AppendEvents(events.PlanStream(planID), evs...); err != nil {
		s.logger.Warn("append events failed", zap.String("plan", string(planID)), zap.Error(err))
	}
}
