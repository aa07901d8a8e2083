package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requirement is the netting record of one product in one bucket.
//
//	ProjectedOnHand = OnHand + ScheduledReceipts + PlannedReceipt - Gross
//	Net             = max(0, Gross + SafetyStock - OnHand - ScheduledReceipts)
type Requirement struct {
	PlanID            PlanID
	ProductID         ProductID
	BucketIndex       int
	BucketDate        time.Time
	LowLevelCode      int
	Gross             decimal.Decimal
	OnHand            decimal.Decimal // projected on hand entering the bucket
	ScheduledReceipts decimal.Decimal
	SafetyStock       decimal.Decimal
	Net               decimal.Decimal
	PlannedReceipt    decimal.Decimal
	PlannedRelease    decimal.Decimal
	ProjectedOnHand   decimal.Decimal
	NeedsOrder        bool
}

// IsIdle reports whether the bucket carries no activity worth persisting
func (r Requirement) IsIdle() bool {
	return r.Gross.IsZero() && r.ScheduledReceipts.IsZero() && r.Net.IsZero() &&
		r.PlannedReceipt.IsZero() && r.PlannedRelease.IsZero()
}
