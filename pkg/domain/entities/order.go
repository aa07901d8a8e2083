package entities

import (
	"fmt"
	"strings"
)

// OrderType represents how a product is replenished
type OrderType int

const (
	Make OrderType = iota
	Buy
	Transfer
)

// String method for OrderType enum
func (o OrderType) String() string {
	switch o {
	case Make:
		return "Make"
	case Buy:
		return "Buy"
	case Transfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// ParseOrderType parses Make/Buy/Transfer, case-insensitive
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "make", "m", "":
		return Make, nil
	case "buy", "b", "purchase":
		return Buy, nil
	case "transfer", "t":
		return Transfer, nil
	default:
		return Make, fmt.Errorf("%w: unknown order type %q", ErrValidation, s)
	}
}

// TargetOrderType is the kind of execution order a planned order converts into
type TargetOrderType string

const (
	ProductionOrder TargetOrderType = "ProductionOrder"
	PurchaseOrder   TargetOrderType = "PurchaseOrder"
	TransferOrder   TargetOrderType = "TransferOrder"
)

// TargetFor returns the execution order kind matching a replenishment type
func TargetFor(o OrderType) TargetOrderType {
	switch o {
	case Buy:
		return PurchaseOrder
	case Transfer:
		return TransferOrder
	default:
		return ProductionOrder
	}
}
