package entities

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PlanID represents a unique plan identifier
type PlanID string

// PlanType distinguishes material plans from capacity plans
type PlanType int

const (
	MRPPlan PlanType = iota
	CRPPlan
)

// String method for PlanType enum
func (t PlanType) String() string {
	switch t {
	case MRPPlan:
		return "MRP"
	case CRPPlan:
		return "CRP"
	default:
		return "Unknown"
	}
}

// PlanStatus represents the lifecycle status of a plan
type PlanStatus int

const (
	PlanDraft PlanStatus = iota
	PlanRunning
	PlanCompleted
	PlanFailed
	PlanApproved
	PlanCancelled
)

// ParsePlanType parses the String() form of a PlanType
func ParsePlanType(s string) (PlanType, error) {
	switch s {
	case "MRP", "mrp":
		return MRPPlan, nil
	case "CRP", "crp":
		return CRPPlan, nil
	default:
		return MRPPlan, fmt.Errorf("%w: unknown plan type %q", ErrValidation, s)
	}
}

// String method for PlanStatus enum
func (s PlanStatus) String() string {
	switch s {
	case PlanDraft:
		return "Draft"
	case PlanRunning:
		return "Running"
	case PlanCompleted:
		return "Completed"
	case PlanFailed:
		return "Failed"
	case PlanApproved:
		return "Approved"
	case PlanCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ParsePlanStatus parses the String() form of a PlanStatus
func ParsePlanStatus(s string) (PlanStatus, error) {
	for st := PlanDraft; st <= PlanCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return PlanDraft, fmt.Errorf("%w: unknown plan status %q", ErrValidation, s)
}

// PlanningPolicy holds the material planning switches of a plan
type PlanningPolicy struct {
	IncludeSafetyStock bool
	ConsiderLeadTimes  bool
	// NetChangeOnly is recorded for reporting; every run regenerates the full plan
	NetChangeOnly          bool
	DefaultLotSizing       LotSizingMethod
	DefaultFixedQty        decimal.Decimal
	DefaultPeriodsOfSupply int
	// RunCapacity loads an MRP plan's orders against work centers after explosion
	RunCapacity bool
}

// DefaultPlanningPolicy returns lot-for-lot planning with safety stock and lead times
func DefaultPlanningPolicy() PlanningPolicy {
	return PlanningPolicy{
		IncludeSafetyStock: true,
		ConsiderLeadTimes:  true,
		DefaultLotSizing:   LotForLot,
	}
}

// CapacityMode selects whether overloads are shifted or only reported
type CapacityMode int

const (
	InfiniteCapacity CapacityMode = iota
	FiniteCapacity
)

// String method for CapacityMode enum
func (m CapacityMode) String() string {
	if m == FiniteCapacity {
		return "Finite"
	}
	return "Infinite"
}

// ShiftPolicy controls how finite loading moves excess hours forward
type ShiftPolicy int

const (
	// ShiftWhole moves the full excess into the first later bucket able to absorb all of it
	ShiftWhole ShiftPolicy = iota
	// ShiftSplit spreads the excess over successive later buckets with spare hours
	ShiftSplit
)

// String method for ShiftPolicy enum
func (p ShiftPolicy) String() string {
	if p == ShiftSplit {
		return "Split"
	}
	return "Whole"
}

// CapacityPolicy holds the capacity planning switches of a plan
type CapacityPolicy struct {
	Mode              CapacityMode
	IncludeSetupTime  bool
	IncludeQueueTime  bool
	IncludeMoveTime   bool
	// IncludeEfficiency scales calendar hours by work center efficiency
	IncludeEfficiency bool
	Thresholds        LoadThresholds
	Shift             ShiftPolicy
}

// DefaultCapacityPolicy returns infinite loading of setup, run, queue and move
// hours against efficiency-adjusted availability
func DefaultCapacityPolicy() CapacityPolicy {
	return CapacityPolicy{
		Mode:              InfiniteCapacity,
		IncludeSetupTime:  true,
		IncludeQueueTime:  true,
		IncludeMoveTime:   true,
		IncludeEfficiency: true,
		Thresholds:        DefaultLoadThresholds(),
	}
}

// PlanSummary aggregates the outcome of a run
type PlanSummary struct {
	ProcessedProducts     int
	GeneratedRequirements int
	GeneratedOrders       int
	CapacityBuckets       int
	OverloadedBuckets     int
	LateOrders            int
	UnresolvedBySeverity  map[Severity]int
	Duration              time.Duration
}

// Plan is a planning run and its lifecycle
type Plan struct {
	ID            PlanID
	Number        string
	Type          PlanType
	Status        PlanStatus
	Horizon       Horizon
	Policy        PlanningPolicy
	Capacity      CapacityPolicy
	SourcePlanID  PlanID // CRP plans load the orders of this MRP plan
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ApprovedAt    *time.Time
	ApprovedBy    string
	CancelledAt   *time.Time
	FailureReason string
	RunCount      int
	Summary       *PlanSummary
}

// NewPlan creates a validated Draft plan
func NewPlan(id PlanID, number string, planType PlanType, horizon Horizon, policy PlanningPolicy, capacity CapacityPolicy, now time.Time) (*Plan, []DomainEvent, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("%w: plan id cannot be empty", ErrValidation)
	}
	if horizon.BucketDays <= 0 {
		return nil, nil, fmt.Errorf("%w: plan %s has no horizon", ErrValidation, id)
	}
	if err := capacity.Thresholds.Validate(); err != nil {
		return nil, nil, err
	}
	if policy.DefaultLotSizing == LotSizingUnspecified {
		policy.DefaultLotSizing = LotForLot
	}
	p := &Plan{
		ID:        id,
		Number:    number,
		Type:      planType,
		Status:    PlanDraft,
		Horizon:   horizon,
		Policy:    policy,
		Capacity:  capacity,
		CreatedAt: now,
	}
	return p, []DomainEvent{newEvent(EventPlanCreated, string(id), now, "type", planType.String())}, nil
}

func (p Plan) stateError(action string) error {
	return &StateError{Entity: "plan", ID: string(p.ID), From: p.Status.String(), Action: action}
}

// Start moves a Draft plan to Running
func (p Plan) Start(now time.Time) (Plan, []DomainEvent, error) {
	if p.Status != PlanDraft {
		return p, nil, p.stateError("start")
	}
	p.Status = PlanRunning
	p.StartedAt = &now
	p.CompletedAt = nil
	p.FailureReason = ""
	p.RunCount++
	return p, []DomainEvent{newEvent(EventPlanStarted, string(p.ID), now, "run", strconv.Itoa(p.RunCount))}, nil
}

// Complete moves a Running plan to Completed with its summary
func (p Plan) Complete(now time.Time, summary PlanSummary) (Plan, []DomainEvent, error) {
	if p.Status != PlanRunning {
		return p, nil, p.stateError("complete")
	}
	p.Status = PlanCompleted
	p.CompletedAt = &now
	p.Summary = &summary
	return p, []DomainEvent{newEvent(EventPlanCompleted, string(p.ID), now,
		"orders", strconv.Itoa(summary.GeneratedOrders))}, nil
}

// Fail moves a Running plan to Failed, keeping whatever summary was produced
func (p Plan) Fail(now time.Time, reason string, summary *PlanSummary) (Plan, []DomainEvent, error) {
	if p.Status != PlanRunning {
		return p, nil, p.stateError("fail")
	}
	p.Status = PlanFailed
	p.CompletedAt = &now
	p.FailureReason = reason
	p.Summary = summary
	return p, []DomainEvent{newEvent(EventPlanFailed, string(p.ID), now, "reason", reason)}, nil
}

// Approve moves a Completed plan to Approved
func (p Plan) Approve(now time.Time, approvedBy string) (Plan, []DomainEvent, error) {
	if p.Status != PlanCompleted {
		return p, nil, p.stateError("approve")
	}
	if approvedBy == "" {
		return p, nil, fmt.Errorf("%w: approver cannot be empty", ErrValidation)
	}
	p.Status = PlanApproved
	p.ApprovedAt = &now
	p.ApprovedBy = approvedBy
	return p, []DomainEvent{newEvent(EventPlanApproved, string(p.ID), now, "by", approvedBy)}, nil
}

// Cancel moves any non-running, non-terminal plan to Cancelled
func (p Plan) Cancel(now time.Time, reason string) (Plan, []DomainEvent, error) {
	switch p.Status {
	case PlanDraft, PlanCompleted, PlanFailed:
	default:
		return p, nil, p.stateError("cancel")
	}
	p.Status = PlanCancelled
	p.CancelledAt = &now
	return p, []DomainEvent{newEvent(EventPlanCancelled, string(p.ID), now, "reason", reason)}, nil
}

// Redraft returns a Failed plan to Draft so it can be run again
func (p Plan) Redraft(now time.Time) (Plan, []DomainEvent, error) {
	if p.Status != PlanFailed {
		return p, nil, p.stateError("redraft")
	}
	p.Status = PlanDraft
	return p, []DomainEvent{newEvent(EventPlanRedrafted, string(p.ID), now)}, nil
}

// IsImmutable reports whether the plan's outputs may no longer be regenerated
func (p Plan) IsImmutable() bool {
	return p.Status == PlanApproved || p.Status == PlanCancelled
}
