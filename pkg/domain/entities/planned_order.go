package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlannedOrderStatus represents the lifecycle status of a planned order
type PlannedOrderStatus int

const (
	OrderSuggested PlannedOrderStatus = iota
	OrderFirmed
	OrderReleased
	OrderConverted
	OrderCancelled
)

// String method for PlannedOrderStatus enum
func (s PlannedOrderStatus) String() string {
	switch s {
	case OrderSuggested:
		return "Suggested"
	case OrderFirmed:
		return "Firmed"
	case OrderReleased:
		return "Released"
	case OrderConverted:
		return "Converted"
	case OrderCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ParsePlannedOrderStatus parses the String() form of a PlannedOrderStatus
func ParsePlannedOrderStatus(s string) (PlannedOrderStatus, error) {
	for st := OrderSuggested; st <= OrderCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return OrderSuggested, fmt.Errorf("%w: unknown planned order status %q", ErrValidation, s)
}

// IsOpen reports whether the order still represents planned supply
func (s PlannedOrderStatus) IsOpen() bool {
	return s != OrderConverted && s != OrderCancelled
}

// PlannedOrder represents a suggested manufacturing or procurement order
type PlannedOrder struct {
	ID               string
	PlanID           PlanID
	ProductID        ProductID
	OrderType        OrderType
	Quantity         decimal.Decimal
	OriginalQuantity decimal.Decimal // net requirement share before lot sizing
	LotSizing        LotSizingMethod
	PlannedStart     time.Time
	PlannedEnd       time.Time
	Status           PlannedOrderStatus
	LowLevelCode     int
	IsLate           bool
	DemandTrace      string

	ConvertedOrderID   string
	ConvertedOrderType TargetOrderType
	ConvertedBy        string
	ConvertedAt        *time.Time
	UpdatedAt          *time.Time
}

// NewPlannedOrder creates a validated Suggested PlannedOrder
func NewPlannedOrder(
	id string,
	planID PlanID,
	productID ProductID,
	orderType OrderType,
	quantity decimal.Decimal,
	plannedStart, plannedEnd time.Time,
) (*PlannedOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: planned order id cannot be empty", ErrValidation)
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: product id cannot be empty", ErrValidation)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive, got %s", ErrValidation, quantity)
	}
	if plannedStart.After(plannedEnd) {
		return nil, fmt.Errorf("%w: start date %s cannot be after end date %s",
			ErrValidation, plannedStart.Format(time.DateOnly), plannedEnd.Format(time.DateOnly))
	}

	return &PlannedOrder{
		ID:               id,
		PlanID:           planID,
		ProductID:        productID,
		OrderType:        orderType,
		Quantity:         quantity,
		OriginalQuantity: quantity,
		PlannedStart:     DayOf(plannedStart),
		PlannedEnd:       DayOf(plannedEnd),
		Status:           OrderSuggested,
	}, nil
}

func (o PlannedOrder) stateError(action string) error {
	return &StateError{Entity: "planned order", ID: o.ID, From: o.Status.String(), Action: action}
}

// Firm locks a Suggested order against regeneration
func (o PlannedOrder) Firm(now time.Time) (PlannedOrder, []DomainEvent, error) {
	if o.Status != OrderSuggested {
		return o, nil, o.stateError("firm")
	}
	o.Status = OrderFirmed
	o.UpdatedAt = &now
	return o, []DomainEvent{newEvent(EventOrderFirmed, o.ID, now, "product", string(o.ProductID))}, nil
}

// Release hands a Suggested or Firmed order to execution
func (o PlannedOrder) Release(now time.Time) (PlannedOrder, []DomainEvent, error) {
	if o.Status != OrderSuggested && o.Status != OrderFirmed {
		return o, nil, o.stateError("release")
	}
	o.Status = OrderReleased
	o.UpdatedAt = &now
	return o, []DomainEvent{newEvent(EventOrderReleased, o.ID, now, "product", string(o.ProductID))}, nil
}

// Convert links an open order to the execution order that replaces it
func (o PlannedOrder) Convert(orderID string, orderType TargetOrderType, convertedBy string, now time.Time) (PlannedOrder, []DomainEvent, error) {
	if !o.Status.IsOpen() {
		return o, nil, o.stateError("convert")
	}
	if orderID == "" {
		return o, nil, fmt.Errorf("%w: converted order id cannot be empty", ErrValidation)
	}
	if convertedBy == "" {
		return o, nil, fmt.Errorf("%w: converter cannot be empty", ErrValidation)
	}
	if orderType == "" {
		orderType = TargetFor(o.OrderType)
	}
	o.Status = OrderConverted
	o.ConvertedOrderID = orderID
	o.ConvertedOrderType = orderType
	o.ConvertedBy = convertedBy
	o.ConvertedAt = &now
	o.UpdatedAt = &now
	return o, []DomainEvent{newEvent(EventOrderConverted, o.ID, now,
		"order_id", orderID, "order_type", string(orderType), "by", convertedBy)}, nil
}

// Cancel withdraws an open order
func (o PlannedOrder) Cancel(now time.Time, reason string) (PlannedOrder, []DomainEvent, error) {
	if !o.Status.IsOpen() {
		return o, nil, o.stateError("cancel")
	}
	o.Status = OrderCancelled
	o.UpdatedAt = &now
	return o, []DomainEvent{newEvent(EventOrderCancelled, o.ID, now, "reason", reason)}, nil
}
