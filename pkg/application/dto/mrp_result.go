package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// ExplosionResult contains the complete output of a material explosion
type ExplosionResult struct {
	Requirements      []entities.Requirement
	PlannedOrders     []entities.PlannedOrder
	Exceptions        []entities.Exception
	LowLevelCodes     map[entities.ProductID]int
	Waves             int
	ProcessedProducts int
	Failed            bool
	FailureReason     string
}

// LoadResult contains the output of a capacity loading pass
type LoadResult struct {
	CapacityRequirements []entities.CapacityRequirement
	// LateOrders are orders whose hours could not be placed within the horizon
	LateOrders        map[string]bool
	OverloadedBuckets int
}

// RunResult is what a plan run returns to its caller
type RunResult struct {
	Plan     entities.Plan
	Outputs  entities.PlanOutputs
	Duration time.Duration
	// CriticalPaths holds the cumulative lead time path of each demanded product
	CriticalPaths map[entities.ProductID]entities.LeadTimePath
}

// GetSummary returns a one-line summary of the run
func (r *RunResult) GetSummary() string {
	if r.Plan.Summary == nil {
		return r.Plan.Status.String()
	}
	s := r.Plan.Summary
	return fmt.Sprintf("%s: %d products, %d planned orders, %d capacity buckets, %d critical exceptions",
		r.Plan.Status, s.ProcessedProducts, s.GeneratedOrders, s.CapacityBuckets,
		s.UnresolvedBySeverity[entities.SeverityCritical])
}

// WorkCenterLoad aggregates the stored capacity buckets of one work center
type WorkCenterLoad struct {
	WorkCenterID entities.WorkCenterID
	Name         string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Buckets      int

	AvailableHours decimal.Decimal
	RequiredHours  decimal.Decimal
	LoadPercent    decimal.Decimal
	// IsOverloaded is set when required hours exceed available hours over the whole period
	IsOverloaded      bool
	OverloadedBuckets int
	PeakLoadPercent   decimal.Decimal
	PeakBucket        time.Time
}
