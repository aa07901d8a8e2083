package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WorkCenterID represents a unique work center identifier
type WorkCenterID string

// WorkCenter represents a capacity resource that routings load
type WorkCenter struct {
	ID           WorkCenterID
	Name         string
	HoursPerDay  decimal.Decimal
	Efficiency   decimal.Decimal // percent
	IsBottleneck bool
}

// NewWorkCenter creates a validated WorkCenter at 100% efficiency
func NewWorkCenter(id WorkCenterID, name string, hoursPerDay decimal.Decimal, isBottleneck bool) (*WorkCenter, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: work center id cannot be empty", ErrValidation)
	}
	if hoursPerDay.IsNegative() {
		return nil, fmt.Errorf("%w: work center %s hours per day cannot be negative, got %s", ErrValidation, id, hoursPerDay)
	}
	return &WorkCenter{
		ID:           id,
		Name:         name,
		HoursPerDay:  hoursPerDay,
		Efficiency:   hundred,
		IsBottleneck: isBottleneck,
	}, nil
}

// EffectiveHours scales calendar hours by the work center efficiency; with
// applyEfficiency false the calendar hours are returned unchanged
func (w *WorkCenter) EffectiveHours(calendarHours decimal.Decimal, applyEfficiency bool) decimal.Decimal {
	if !applyEfficiency {
		return calendarHours
	}
	eff := w.Efficiency
	if eff.IsZero() {
		eff = hundred
	}
	return calendarHours.Mul(eff).Div(hundred)
}
