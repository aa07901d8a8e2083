package capacity

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

type cellKey struct {
	workCenter entities.WorkCenterID
	bucket     int
}

// cell accumulates the load of one work center bucket; mu serializes writers
type cell struct {
	mu  sync.Mutex
	req entities.CapacityRequirement
}

func (c *cell) add(detail entities.LoadDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req.SetupHours = c.req.SetupHours.Add(detail.SetupHours)
	c.req.RunHours = c.req.RunHours.Add(detail.RunHours)
	c.req.QueueHours = c.req.QueueHours.Add(detail.QueueHours)
	c.req.MoveHours = c.req.MoveHours.Add(detail.MoveHours)
	c.req.RequiredHours = c.req.RequiredHours.Add(detail.TotalHours)
	c.req.Details = append(c.req.Details, detail)
}

// ledger holds one cell per (work center, bucket) touched by a load pass
type ledger struct {
	planID  entities.PlanID
	horizon entities.Horizon

	mu    sync.Mutex
	cells map[cellKey]*cell
}

func newLedger(planID entities.PlanID, horizon entities.Horizon) *ledger {
	return &ledger{planID: planID, horizon: horizon, cells: make(map[cellKey]*cell)}
}

// cell returns the cell for the key, creating it on first use
func (l *ledger) cell(wc entities.WorkCenterID, bucket int) *cell {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := cellKey{workCenter: wc, bucket: bucket}
	c, ok := l.cells[key]
	if !ok {
		c = &cell{req: entities.CapacityRequirement{
			PlanID:       l.planID,
			WorkCenterID: wc,
			BucketIndex:  bucket,
			BucketDate:   l.horizon.BucketStart(bucket),
		}}
		l.cells[key] = c
	}
	return c
}

// workCenters lists the work centers that received load
func (l *ledger) workCenters() map[entities.WorkCenterID]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[entities.WorkCenterID]bool)
	for key := range l.cells {
		out[key.workCenter] = true
	}
	return out
}

// bucketOf maps an operation date into the horizon; late dates fall into the last bucket
func bucketOf(h entities.Horizon, date time.Time) int {
	if idx, ok := h.BucketIndex(date); ok {
		return idx
	}
	return h.Len() - 1
}

func sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
