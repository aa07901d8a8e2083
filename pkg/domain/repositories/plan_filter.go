package repositories

import (
	"time"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// PlanFilter narrows a plan listing; nil and zero fields match every plan
type PlanFilter struct {
	Status *entities.PlanStatus
	Type   *entities.PlanType
	// SourcePlanID matches CRP plans loaded from this MRP plan
	SourcePlanID entities.PlanID
	// From and To keep plans whose horizon overlaps the window
	From time.Time
	To   time.Time
}

// Matches reports whether the plan passes the filter
func (f PlanFilter) Matches(p entities.Plan) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.SourcePlanID != "" && p.SourcePlanID != f.SourcePlanID {
		return false
	}
	if !f.From.IsZero() && p.Horizon.End.Before(entities.DayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && p.Horizon.Start.After(entities.DayOf(f.To)) {
		return false
	}
	return true
}

// PlannedOrderFilter narrows a planned order query across plans
type PlannedOrderFilter struct {
	PlanID    entities.PlanID
	ProductID entities.ProductID
	Status    *entities.PlannedOrderStatus
}

// Matches reports whether the order passes the filter
func (f PlannedOrderFilter) Matches(o entities.PlannedOrder) bool {
	if f.PlanID != "" && o.PlanID != f.PlanID {
		return false
	}
	if f.ProductID != "" && o.ProductID != f.ProductID {
		return false
	}
	return f.Status == nil || o.Status == *f.Status
}

// CapacityFilter narrows the capacity buckets of one plan
type CapacityFilter struct {
	PlanID         entities.PlanID
	WorkCenterID   entities.WorkCenterID
	From           time.Time
	To             time.Time
	OnlyOverloaded bool
}

// Matches reports whether the bucket passes the filter; the plan id is left to the store
func (f CapacityFilter) Matches(c entities.CapacityRequirement) bool {
	if f.WorkCenterID != "" && c.WorkCenterID != f.WorkCenterID {
		return false
	}
	if !f.From.IsZero() && c.BucketDate.Before(entities.DayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && c.BucketDate.After(entities.DayOf(f.To)) {
		return false
	}
	return !f.OnlyOverloaded || c.Status >= entities.LoadOverloaded
}
