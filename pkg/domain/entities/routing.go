package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Operation is one step of a routing performed at a work center
type Operation struct {
	Sequence        int
	WorkCenterID    WorkCenterID
	Description     string
	SetupHours      decimal.Decimal
	RunHoursPerUnit decimal.Decimal
	QueueHours      decimal.Decimal
	MoveHours       decimal.Decimal
	OffsetDays      int // days after the order start
}

// NewOperation creates a validated Operation
func NewOperation(sequence int, workCenterID WorkCenterID, setup, runPerUnit, queue, move decimal.Decimal) (*Operation, error) {
	if sequence <= 0 {
		return nil, fmt.Errorf("%w: operation sequence must be positive, got %d", ErrValidation, sequence)
	}
	if workCenterID == "" {
		return nil, fmt.Errorf("%w: operation %d has no work center", ErrValidation, sequence)
	}
	for name, h := range map[string]decimal.Decimal{"setup": setup, "run": runPerUnit, "queue": queue, "move": move} {
		if h.IsNegative() {
			return nil, fmt.Errorf("%w: operation %d %s hours cannot be negative, got %s", ErrValidation, sequence, name, h)
		}
	}
	return &Operation{
		Sequence:        sequence,
		WorkCenterID:    workCenterID,
		SetupHours:      setup,
		RunHoursPerUnit: runPerUnit,
		QueueHours:      queue,
		MoveHours:       move,
	}, nil
}

// Routing represents one version of a product's sequence of operations
type Routing struct {
	ID          string
	ProductID   ProductID
	Version     string
	Status      StructureStatus
	IsDefault   bool
	Effectivity DateEffectivity
	Operations  []Operation
}

// AddOperation inserts an operation keeping the list ordered by sequence
func (r *Routing) AddOperation(op Operation) error {
	for _, existing := range r.Operations {
		if existing.Sequence == op.Sequence {
			return fmt.Errorf("%w: routing %s already has operation %d", ErrValidation, r.ID, op.Sequence)
		}
	}
	r.Operations = append(r.Operations, op)
	sort.Slice(r.Operations, func(i, j int) bool {
		return r.Operations[i].Sequence < r.Operations[j].Sequence
	})
	return nil
}

// IsEffectiveOn reports whether the routing is active and in effect on the date
func (r *Routing) IsEffectiveOn(date time.Time) bool {
	return r.Status == StructureActive && r.Effectivity.Contains(date)
}
