package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DemandSource identifies where a gross requirement came from
type DemandSource int

const (
	SalesOrderDemand DemandSource = iota
	ForecastDemand
	ManualDemand
	DependentDemand
	// PhantomPassThrough traces quantities that flowed through a phantom
	// assembly. It never contributes to the phantom's own gross requirement.
	PhantomPassThrough
)

// String method for DemandSource enum
func (s DemandSource) String() string {
	switch s {
	case SalesOrderDemand:
		return "SalesOrder"
	case ForecastDemand:
		return "Forecast"
	case ManualDemand:
		return "Manual"
	case DependentDemand:
		return "Dependent"
	case PhantomPassThrough:
		return "PhantomPassThrough"
	default:
		return "Unknown"
	}
}

// ParseDemandSource parses the String() form of a DemandSource
func ParseDemandSource(s string) (DemandSource, error) {
	for src := SalesOrderDemand; src <= PhantomPassThrough; src++ {
		if src.String() == s {
			return src, nil
		}
	}
	if s == "" {
		return SalesOrderDemand, nil
	}
	return SalesOrderDemand, fmt.Errorf("%w: unknown demand source %q", ErrValidation, s)
}

// DemandEntry is one gross requirement for a product on a date
type DemandEntry struct {
	ProductID ProductID
	Date      time.Time
	Quantity  decimal.Decimal
	Source    DemandSource
	Reference string // sales order, forecast id or parent planned order
}

// NewDemandEntry creates a validated DemandEntry
func NewDemandEntry(productID ProductID, date time.Time, quantity decimal.Decimal, source DemandSource, reference string) (*DemandEntry, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: demand product id cannot be empty", ErrValidation)
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: demand quantity for %s cannot be negative, got %s", ErrValidation, productID, quantity)
	}
	return &DemandEntry{
		ProductID: productID,
		Date:      DayOf(date),
		Quantity:  quantity,
		Source:    source,
		Reference: reference,
	}, nil
}
