package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LoadStatus classifies a bucket's load percentage
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	LoadHigh
	LoadOverloaded
	LoadBottleneck
)

// String method for LoadStatus enum
func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "OK"
	case LoadHigh:
		return "High"
	case LoadOverloaded:
		return "Overloaded"
	case LoadBottleneck:
		return "Bottleneck"
	default:
		return "Unknown"
	}
}

// LoadThresholds are the lower bounds, in percent, of each load status above OK
type LoadThresholds struct {
	High       decimal.Decimal
	Overload   decimal.Decimal
	Bottleneck decimal.Decimal
}

// DefaultLoadThresholds returns 80 / 100 / 120 percent
func DefaultLoadThresholds() LoadThresholds {
	return LoadThresholds{
		High:       decimal.NewFromInt(80),
		Overload:   decimal.NewFromInt(100),
		Bottleneck: decimal.NewFromInt(120),
	}
}

// Validate requires strictly increasing positive thresholds
func (t LoadThresholds) Validate() error {
	if !t.High.IsPositive() || !t.High.LessThan(t.Overload) || !t.Overload.LessThan(t.Bottleneck) {
		return fmt.Errorf("%w: load thresholds must satisfy 0 < high < overload < bottleneck, got %s/%s/%s",
			ErrValidation, t.High, t.Overload, t.Bottleneck)
	}
	return nil
}

// Classify maps a load percentage to its status; a value equal to a threshold takes the higher class
func (t LoadThresholds) Classify(loadPercent decimal.Decimal) LoadStatus {
	switch {
	case loadPercent.GreaterThanOrEqual(t.Bottleneck):
		return LoadBottleneck
	case loadPercent.GreaterThanOrEqual(t.Overload):
		return LoadOverloaded
	case loadPercent.GreaterThanOrEqual(t.High):
		return LoadHigh
	default:
		return LoadOK
	}
}

// UnboundedLoadPercent is reported for required hours against zero available hours
var UnboundedLoadPercent = decimal.NewFromInt(9999)

// LoadPercent returns required / available * 100 rounded to two places
func LoadPercent(required, available decimal.Decimal) decimal.Decimal {
	if !available.IsPositive() {
		if required.IsPositive() {
			return UnboundedLoadPercent
		}
		return decimal.Zero
	}
	return required.Mul(hundred).Div(available).Round(2)
}

// LoadDetail traces the hours one order operation places on a bucket
type LoadDetail struct {
	PlannedOrderID    string
	ProductID         ProductID
	OperationSequence int
	Date              time.Time
	SetupHours        decimal.Decimal
	RunHours          decimal.Decimal
	QueueHours        decimal.Decimal
	MoveHours         decimal.Decimal
	TotalHours        decimal.Decimal
}

// CapacityRequirement is the load of one work center in one bucket
type CapacityRequirement struct {
	PlanID         PlanID
	WorkCenterID   WorkCenterID
	BucketIndex    int
	BucketDate     time.Time
	AvailableHours decimal.Decimal
	RequiredHours  decimal.Decimal
	SetupHours     decimal.Decimal
	RunHours       decimal.Decimal
	QueueHours     decimal.Decimal
	MoveHours      decimal.Decimal
	LoadPercent    decimal.Decimal
	OverCapacity   decimal.Decimal
	UnderCapacity  decimal.Decimal
	Status         LoadStatus
	ShiftedIn      decimal.Decimal
	ShiftedOut     decimal.Decimal
	ShiftedTo      *time.Time
	Details        []LoadDetail
}

// Finalize derives load percentage, over/under capacity and status from the hours
func (c *CapacityRequirement) Finalize(thresholds LoadThresholds) {
	c.LoadPercent = LoadPercent(c.RequiredHours, c.AvailableHours)
	diff := c.RequiredHours.Sub(c.AvailableHours)
	if diff.IsPositive() {
		c.OverCapacity = diff
		c.UnderCapacity = decimal.Zero
	} else {
		c.OverCapacity = decimal.Zero
		c.UnderCapacity = diff.Neg()
	}
	c.Status = thresholds.Classify(c.LoadPercent)
}
