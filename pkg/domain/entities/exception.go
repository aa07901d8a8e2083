package entities

import (
	"fmt"
	"time"
)

// ExceptionType identifies a planning anomaly
type ExceptionType int

const (
	MissingBom ExceptionType = iota
	MissingRouting
	MissingItemData
	MissingWorkCenter
	AmbiguousStructure
	CycleDetected
	LeadTimeOverrun
	InsufficientStock
	InsufficientCapacity
	CapacityBottleneck
	ValidationFailure
	DeadlineExceeded
	DemandOutsideHorizon
)

var exceptionTypeNames = map[ExceptionType]string{
	MissingBom:           "MissingBom",
	MissingRouting:       "MissingRouting",
	MissingItemData:      "MissingItemData",
	MissingWorkCenter:    "MissingWorkCenter",
	AmbiguousStructure:   "AmbiguousStructure",
	CycleDetected:        "CycleDetected",
	LeadTimeOverrun:      "LeadTimeOverrun",
	InsufficientStock:    "InsufficientStock",
	InsufficientCapacity: "InsufficientCapacity",
	CapacityBottleneck:   "CapacityBottleneck",
	ValidationFailure:    "ValidationFailure",
	DeadlineExceeded:     "DeadlineExceeded",
	DemandOutsideHorizon: "DemandOutsideHorizon",
}

// String method for ExceptionType enum
func (t ExceptionType) String() string {
	if name, ok := exceptionTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseExceptionType parses the String() form of an ExceptionType
func ParseExceptionType(s string) (ExceptionType, error) {
	for t, name := range exceptionTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown exception type %q", ErrValidation, s)
}

// Severity ranks how urgently an exception needs a planner
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String method for Severity enum
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Severities lists every severity from least to most urgent
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

var severityTable = map[ExceptionType]Severity{
	MissingBom:           SeverityCritical,
	MissingRouting:       SeverityCritical,
	MissingItemData:      SeverityCritical,
	MissingWorkCenter:    SeverityCritical,
	AmbiguousStructure:   SeverityCritical,
	CycleDetected:        SeverityCritical,
	LeadTimeOverrun:      SeverityHigh,
	InsufficientStock:    SeverityMedium,
	InsufficientCapacity: SeverityHigh,
	CapacityBottleneck:   SeverityCritical,
	ValidationFailure:    SeverityHigh,
	DeadlineExceeded:     SeverityCritical,
	DemandOutsideHorizon: SeverityLow,
}

// SeverityOf returns the fixed severity of an exception type
func SeverityOf(t ExceptionType) Severity {
	if s, ok := severityTable[t]; ok {
		return s
	}
	return SeverityMedium
}

// Category returns the error category an exception type belongs to
func (t ExceptionType) Category() error {
	switch t {
	case MissingBom, MissingRouting, MissingItemData, MissingWorkCenter, AmbiguousStructure:
		return ErrDataIncomplete
	case CycleDetected:
		return ErrCycleDetected
	case InsufficientCapacity, CapacityBottleneck:
		return ErrCapacityShortage
	case DeadlineExceeded:
		return ErrInvalidState
	default:
		return ErrValidation
	}
}

// Exception is a recorded planning anomaly awaiting a planner
type Exception struct {
	ID              string
	PlanID          PlanID
	ProductID       ProductID
	WorkCenterID    WorkCenterID
	Type            ExceptionType
	Severity        Severity
	Message         string
	SuggestedAction string // corrective step proposed to the planner, if any
	CreatedAt       time.Time
	IsResolved      bool
	ResolvedBy      string
	ResolvedAt      *time.Time
	ResolutionNotes string
}

// Resolve marks the exception handled; an exception resolves only once
func (e Exception) Resolve(resolvedBy, notes string, now time.Time) (Exception, []DomainEvent, error) {
	if e.IsResolved {
		return e, nil, &StateError{Entity: "exception", ID: e.ID, From: "Resolved", Action: "resolve"}
	}
	if resolvedBy == "" {
		return e, nil, fmt.Errorf("%w: resolver cannot be empty", ErrValidation)
	}
	e.IsResolved = true
	e.ResolvedBy = resolvedBy
	e.ResolvedAt = &now
	e.ResolutionNotes = notes
	return e, []DomainEvent{newEvent(EventExceptionResolved, e.ID, now, "by", resolvedBy, "type", e.Type.String())}, nil
}
