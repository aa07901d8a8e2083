package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StructureStatus is the release status shared by BOMs and routings
type StructureStatus int

const (
	StructureDraft StructureStatus = iota
	StructureActive
	StructureObsolete
)

// String method for StructureStatus enum
func (s StructureStatus) String() string {
	switch s {
	case StructureDraft:
		return "Draft"
	case StructureActive:
		return "Active"
	case StructureObsolete:
		return "Obsolete"
	default:
		return "Unknown"
	}
}

// ParseStructureStatus accepts the String() form case-insensitively; blank means Active
func ParseStructureStatus(s string) (StructureStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return StructureActive, nil
	case "draft":
		return StructureDraft, nil
	case "obsolete":
		return StructureObsolete, nil
	default:
		return StructureDraft, fmt.Errorf("%w: unknown structure status %q", ErrValidation, s)
	}
}

// DateEffectivity defines the date range in which a structure record applies.
// A nil bound is open ended.
type DateEffectivity struct {
	From *time.Time
	To   *time.Time
}

// NewDateEffectivity creates a validated DateEffectivity
func NewDateEffectivity(from, to *time.Time) (DateEffectivity, error) {
	if from != nil && to != nil && DayOf(*to).Before(DayOf(*from)) {
		return DateEffectivity{}, fmt.Errorf("%w: effectivity end %s is before start %s",
			ErrValidation, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return DateEffectivity{From: from, To: to}, nil
}

// Contains reports whether the date lies inside the effectivity window, bounds inclusive
func (e DateEffectivity) Contains(date time.Time) bool {
	date = DayOf(date)
	if e.From != nil && date.Before(DayOf(*e.From)) {
		return false
	}
	if e.To != nil && date.After(DayOf(*e.To)) {
		return false
	}
	return true
}

// NetQuantityFor applies a scrap percentage to a per-parent quantity
func NetQuantityFor(quantityPer, scrapRate decimal.Decimal) decimal.Decimal {
	return quantityPer.Mul(decimal.NewFromInt(1).Add(scrapRate.Div(hundred)))
}

// BomLine represents a single component line of a bill of materials
type BomLine struct {
	ComponentID       ProductID
	QuantityPer       decimal.Decimal
	Unit              string
	ScrapRate         decimal.Decimal // percent
	NetQuantity       decimal.Decimal
	Effectivity       DateEffectivity
	OperationSequence int // 0 when the line is not tied to an operation
	IsPhantom         bool
}

// NewBomLine creates a validated BomLine with its net quantity derived
func NewBomLine(componentID ProductID, quantityPer decimal.Decimal, unit string, scrapRate decimal.Decimal) (*BomLine, error) {
	if componentID == "" {
		return nil, fmt.Errorf("%w: component id cannot be empty", ErrValidation)
	}
	line := &BomLine{ComponentID: componentID, Unit: unit}
	if err := line.SetQuantityPer(quantityPer); err != nil {
		return nil, err
	}
	if err := line.SetScrapRate(scrapRate); err != nil {
		return nil, err
	}
	return line, nil
}

// SetQuantityPer updates the per-parent quantity and recomputes the net quantity
func (l *BomLine) SetQuantityPer(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("%w: quantity per must be positive, got %s", ErrValidation, q)
	}
	l.QuantityPer = q
	l.NetQuantity = NetQuantityFor(l.QuantityPer, l.ScrapRate)
	return nil
}

// SetScrapRate updates the scrap percentage and recomputes the net quantity
func (l *BomLine) SetScrapRate(s decimal.Decimal) error {
	if s.IsNegative() || s.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: scrap rate must be within [0, 100), got %s", ErrValidation, s)
	}
	l.ScrapRate = s
	l.NetQuantity = NetQuantityFor(l.QuantityPer, l.ScrapRate)
	return nil
}

// BillOfMaterial represents one version of a product's structure
type BillOfMaterial struct {
	ID          string
	ProductID   ProductID
	Version     string
	Status      StructureStatus
	IsDefault   bool
	Effectivity DateEffectivity
	Lines       []BomLine
}

// NewBillOfMaterial creates a validated BillOfMaterial
func NewBillOfMaterial(id string, productID ProductID, version string, status StructureStatus, isDefault bool) (*BillOfMaterial, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: bom id cannot be empty", ErrValidation)
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: bom product id cannot be empty", ErrValidation)
	}
	return &BillOfMaterial{
		ID:        id,
		ProductID: productID,
		Version:   version,
		Status:    status,
		IsDefault: isDefault,
	}, nil
}

// AddLine appends a component line, rejecting self references
func (b *BillOfMaterial) AddLine(line BomLine) error {
	if line.ComponentID == b.ProductID {
		return fmt.Errorf("%w: bom %s lists its own product %s as a component", ErrCycleDetected, b.ID, b.ProductID)
	}
	b.Lines = append(b.Lines, line)
	return nil
}

// IsEffectiveOn reports whether the BOM is active and in effect on the date
func (b *BillOfMaterial) IsEffectiveOn(date time.Time) bool {
	return b.Status == StructureActive && b.Effectivity.Contains(date)
}

// LinesEffectiveOn returns the lines whose own effectivity contains the date
func (b *BillOfMaterial) LinesEffectiveOn(date time.Time) []BomLine {
	lines := make([]BomLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		if l.Effectivity.Contains(date) {
			lines = append(lines, l)
		}
	}
	return lines
}
