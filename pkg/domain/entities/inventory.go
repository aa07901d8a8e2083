package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryStatus represents the status of inventory
type InventoryStatus int

const (
	Available InventoryStatus = iota
	Allocated
	Quarantine
)

// String method for InventoryStatus enum
func (s InventoryStatus) String() string {
	switch s {
	case Available:
		return "Available"
	case Allocated:
		return "Allocated"
	case Quarantine:
		return "Quarantine"
	default:
		return "Unknown"
	}
}

// ParseInventoryStatus parses the String() form of an InventoryStatus
func ParseInventoryStatus(s string) (InventoryStatus, error) {
	switch s {
	case "Available", "":
		return Available, nil
	case "Allocated":
		return Allocated, nil
	case "Quarantine":
		return Quarantine, nil
	default:
		return Available, fmt.Errorf("%w: unknown inventory status %q", ErrValidation, s)
	}
}

// InventoryLot represents lot-controlled stock of a product
type InventoryLot struct {
	ProductID   ProductID
	LotNumber   string
	Location    string
	Quantity    decimal.Decimal
	ReceiptDate time.Time
	Status      InventoryStatus
}

// NewInventoryLot creates a validated InventoryLot
func NewInventoryLot(productID ProductID, lotNumber, location string, quantity decimal.Decimal, receiptDate time.Time, status InventoryStatus) (*InventoryLot, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id cannot be empty", ErrValidation)
	}
	if lotNumber == "" {
		return nil, fmt.Errorf("%w: lot number cannot be empty", ErrValidation)
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: quantity cannot be negative, got %s", ErrValidation, quantity)
	}

	return &InventoryLot{
		ProductID:   productID,
		LotNumber:   lotNumber,
		Location:    location,
		Quantity:    quantity,
		ReceiptDate: receiptDate,
		Status:      status,
	}, nil
}

// ScheduledReceipt is an open order already expected to arrive
type ScheduledReceipt struct {
	ProductID ProductID
	Date      time.Time
	Quantity  decimal.Decimal
	Reference string
}

// NewScheduledReceipt creates a validated ScheduledReceipt
func NewScheduledReceipt(productID ProductID, date time.Time, quantity decimal.Decimal, reference string) (*ScheduledReceipt, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id cannot be empty", ErrValidation)
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: scheduled receipt for %s cannot be negative, got %s", ErrValidation, productID, quantity)
	}
	return &ScheduledReceipt{ProductID: productID, Date: DayOf(date), Quantity: quantity, Reference: reference}, nil
}
