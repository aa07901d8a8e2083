package planning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/services/exceptions"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

type orderChange func(entities.PlannedOrder, time.Time) (entities.PlannedOrder, []entities.DomainEvent, error)

// FirmOrder protects a Suggested order from being replaced by the planner
func (s *Service) FirmOrder(ctx context.Context, orderID string) (*entities.PlannedOrder, error) {
	return s.orderTransition(ctx, orderID, func(o entities.PlannedOrder, now time.Time) (entities.PlannedOrder, []entities.DomainEvent, error) {
		return o.Firm(now)
	})
}

// ReleaseOrder releases a Suggested or Firmed order for execution
func (s *Service) ReleaseOrder(ctx context.Context, orderID string) (*entities.PlannedOrder, error) {
	return s.orderTransition(ctx, orderID, func(o entities.PlannedOrder, now time.Time) (entities.PlannedOrder, []entities.DomainEvent, error) {
		return o.Release(now)
	})
}

// CancelOrder cancels an open order
func (s *Service) CancelOrder(ctx context.Context, orderID, reason string) (*entities.PlannedOrder, error) {
	return s.orderTransition(ctx, orderID, func(o entities.PlannedOrder, now time.Time) (entities.PlannedOrder, []entities.DomainEvent, error) {
		return o.Cancel(now, reason)
	})
}

// ConvertToOrder records that an external system turned the planned order
// into a real order; an empty order type is derived from the replenishment type
func (s *Service) ConvertToOrder(
	ctx context.Context,
	plannedOrderID, orderID string,
	orderType entities.TargetOrderType,
	convertedBy string,
) (*entities.PlannedOrder, error) {
	return s.orderTransition(ctx, plannedOrderID, func(o entities.PlannedOrder, now time.Time) (entities.PlannedOrder, []entities.DomainEvent, error) {
		return o.Convert(orderID, orderType, convertedBy, now)
	})
}

// orderTransition applies a transition to an order of a Completed or Approved plan
func (s *Service) orderTransition(ctx context.Context, orderID string, apply orderChange) (*entities.PlannedOrder, error) {
	order, err := s.deps.Plans.GetPlannedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	plan, err := s.deps.Plans.GetPlan(ctx, order.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status != entities.PlanCompleted && plan.Status != entities.PlanApproved {
		return nil, fmt.Errorf("%w: orders of plan %s cannot change while it is %s",
			entities.ErrInvalidState, plan.ID, plan.Status)
	}

	next, evs, err := apply(*order, s.deps.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Plans.SavePlannedOrder(ctx, next); err != nil {
		return nil, fmt.Errorf("save planned order: %w", err)
	}
	s.publish(plan.ID, evs)
	s.logger.Info("planned order status changed",
		zap.String("order", orderID),
		zap.String("product", string(order.ProductID)),
		zap.String("from", order.Status.String()),
		zap.String("to", next.Status.String()))
	return &next, nil
}

// ResolveException marks an exception as handled by a person
func (s *Service) ResolveException(ctx context.Context, exceptionID, resolvedBy, notes string) (*entities.Exception, error) {
	exception, err := s.deps.Plans.GetException(ctx, exceptionID)
	if err != nil {
		return nil, err
	}
	resolved, evs, err := exception.Resolve(resolvedBy, notes, s.deps.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Plans.SaveException(ctx, resolved); err != nil {
		return nil, fmt.Errorf("save exception: %w", err)
	}
	if err := s.refreshUnresolved(ctx, exception.PlanID); err != nil {
		return nil, err
	}
	s.publish(exception.PlanID, evs)
	s.logger.Info("exception resolved",
		zap.String("exception", exceptionID),
		zap.String("type", exception.Type.String()),
		zap.String("by", resolvedBy))
	return &resolved, nil
}

// refreshUnresolved recounts the plan summary's unresolved exceptions from the store
func (s *Service) refreshUnresolved(ctx context.Context, planID entities.PlanID) error {
	plan, err := s.deps.Plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Summary == nil {
		return nil
	}
	outputs, err := s.deps.Plans.GetOutputs(ctx, planID)
	if err != nil {
		return err
	}
	summary := *plan.Summary
	summary.UnresolvedBySeverity = exceptions.Summarize(outputs.Exceptions)
	plan.Summary = &summary
	if err := s.deps.Plans.SavePlanFrom(ctx, *plan, plan.Status); err != nil {
		return fmt.Errorf("save plan summary: %w", err)
	}
	return nil
}
