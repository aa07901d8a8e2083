package netting

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Policy selects the netting options taken from the plan
type Policy struct {
	IncludeSafetyStock bool
}

// Input is the time-phased position of one product
type Input struct {
	PlanID            entities.PlanID
	ProductID         entities.ProductID
	LowLevelCode      int
	Horizon           entities.Horizon
	Gross             []decimal.Decimal
	ScheduledReceipts []decimal.Decimal
	OnHand            decimal.Decimal
	SafetyStock       decimal.Decimal
}

// Engine nets gross requirements against stock and open receipts
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a netting engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Net walks the buckets in order and flags every bucket whose projected
// balance would fall below safety stock. The shortfall is assumed covered
// lot-for-lot, so the returned records carry PlannedReceipt = Net and the
// next bucket starts from the safety stock level.
func (e *Engine) Net(in Input, policy Policy) ([]entities.Requirement, error) {
	n := in.Horizon.Len()
	if len(in.Gross) != n {
		return nil, fmt.Errorf("%w: %s has %d gross buckets, horizon has %d", entities.ErrValidation, in.ProductID, len(in.Gross), n)
	}
	receipts := in.ScheduledReceipts
	if receipts == nil {
		receipts = make([]decimal.Decimal, n)
	}
	if len(receipts) != n {
		return nil, fmt.Errorf("%w: %s has %d receipt buckets, horizon has %d", entities.ErrValidation, in.ProductID, len(receipts), n)
	}

	safety := decimal.Zero
	if policy.IncludeSafetyStock {
		safety = in.SafetyStock
	}
	if safety.IsNegative() {
		return nil, fmt.Errorf("%w: %s safety stock is negative", entities.ErrValidation, in.ProductID)
	}

	reqs := make([]entities.Requirement, n)
	onHand := in.OnHand
	for i := 0; i < n; i++ {
		gross := in.Gross[i]
		if gross.IsNegative() {
			return nil, fmt.Errorf("%w: %s gross requirement %s in bucket %d is negative", entities.ErrValidation, in.ProductID, gross, i)
		}
		sr := receipts[i]
		if sr.IsNegative() {
			return nil, fmt.Errorf("%w: %s scheduled receipt %s in bucket %d is negative", entities.ErrValidation, in.ProductID, sr, i)
		}

		available := onHand.Add(sr).Sub(gross)
		net := decimal.Max(decimal.Zero, safety.Sub(available))
		projected := available.Add(net)

		reqs[i] = entities.Requirement{
			PlanID:            in.PlanID,
			ProductID:         in.ProductID,
			BucketIndex:       i,
			BucketDate:        in.Horizon.BucketStart(i),
			LowLevelCode:      in.LowLevelCode,
			Gross:             gross,
			OnHand:            onHand,
			ScheduledReceipts: sr,
			SafetyStock:       safety,
			Net:               net,
			PlannedReceipt:    net,
			PlannedRelease:    decimal.Zero,
			ProjectedOnHand:   projected,
			NeedsOrder:        net.IsPositive(),
		}
		onHand = projected
	}

	e.logger.Debug("netted product",
		zap.String("product", string(in.ProductID)),
		zap.Int("buckets", n),
		zap.String("opening_on_hand", in.OnHand.String()),
	)
	return reqs, nil
}
