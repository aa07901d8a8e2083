package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID represents a unique product identifier
type ProductID string

// LotSizingMethod represents the lot sizing rule applied to net requirements
type LotSizingMethod int

const (
	// LotSizingUnspecified defers to the plan's default method
	LotSizingUnspecified LotSizingMethod = iota
	LotForLot
	FixedOrderQuantity
	PeriodsOfSupply
	MinimumQuantity
)

// String method for LotSizingMethod enum
func (l LotSizingMethod) String() string {
	switch l {
	case LotSizingUnspecified:
		return "Unspecified"
	case LotForLot:
		return "LotForLot"
	case FixedOrderQuantity:
		return "FixedOrderQuantity"
	case PeriodsOfSupply:
		return "PeriodsOfSupply"
	case MinimumQuantity:
		return "MinimumQuantity"
	default:
		return "Unknown"
	}
}

// ParseLotSizingMethod accepts the String() form and the common short codes
func ParseLotSizingMethod(s string) (LotSizingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LotSizingUnspecified, nil
	case "lotforlot", "lot_for_lot", "l4l", "lfl":
		return LotForLot, nil
	case "fixedorderquantity", "fixed_order_quantity", "foq", "fixed":
		return FixedOrderQuantity, nil
	case "periodsofsupply", "periods_of_supply", "pos":
		return PeriodsOfSupply, nil
	case "minimumquantity", "minimum_quantity", "minimumqty", "min":
		return MinimumQuantity, nil
	default:
		return LotSizingUnspecified, fmt.Errorf("%w: unknown lot sizing method %q", ErrValidation, s)
	}
}

// Item represents the planning master data of a product
type Item struct {
	ProductID       ProductID
	Description     string
	UnitOfMeasure   string
	LeadTimeDays    int
	Replenishment   OrderType
	LotSizing       LotSizingMethod
	FixedOrderQty   decimal.Decimal
	PeriodsOfSupply int
	MinOrderQty     decimal.Decimal
	MaxOrderQty     decimal.Decimal // zero means unlimited
	SafetyStock     decimal.Decimal
}

// NewItem creates a validated Item
func NewItem(
	productID ProductID,
	description string,
	leadTimeDays int,
	replenishment OrderType,
	lotSizing LotSizingMethod,
	safetyStock decimal.Decimal,
) (*Item, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id cannot be empty", ErrValidation)
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("%w: lead time days cannot be negative, got %d", ErrValidation, leadTimeDays)
	}
	if safetyStock.IsNegative() {
		return nil, fmt.Errorf("%w: safety stock cannot be negative, got %s", ErrValidation, safetyStock)
	}

	return &Item{
		ProductID:     productID,
		Description:   description,
		UnitOfMeasure: "EA",
		LeadTimeDays:  leadTimeDays,
		Replenishment: replenishment,
		LotSizing:     lotSizing,
		SafetyStock:   safetyStock,
	}, nil
}

// Validate checks the lot sizing parameters against the selected method
func (i *Item) Validate() error {
	switch {
	case i.FixedOrderQty.IsNegative():
		return fmt.Errorf("%w: item %s fixed order quantity cannot be negative", ErrValidation, i.ProductID)
	case i.MinOrderQty.IsNegative():
		return fmt.Errorf("%w: item %s minimum order quantity cannot be negative", ErrValidation, i.ProductID)
	case i.MaxOrderQty.IsNegative():
		return fmt.Errorf("%w: item %s maximum order quantity cannot be negative", ErrValidation, i.ProductID)
	case i.MaxOrderQty.IsPositive() && i.MinOrderQty.GreaterThan(i.MaxOrderQty):
		return fmt.Errorf("%w: item %s minimum order quantity %s exceeds maximum %s",
			ErrValidation, i.ProductID, i.MinOrderQty, i.MaxOrderQty)
	case i.LotSizing == FixedOrderQuantity && !i.FixedOrderQty.IsPositive():
		return fmt.Errorf("%w: item %s uses fixed order quantity without a positive quantity", ErrValidation, i.ProductID)
	case i.LotSizing == PeriodsOfSupply && i.PeriodsOfSupply <= 0:
		return fmt.Errorf("%w: item %s uses periods of supply without a positive period count", ErrValidation, i.ProductID)
	}
	return nil
}
