package capacity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/mrpcrp/pkg/application/services/exceptions"
	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/application/services/structure"
	testhelpers "github.com/vsinha/mrpcrp/pkg/application/services/testing"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

var start = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	scenario *testhelpers.Scenario
	recorder *exceptions.Recorder
	loader   *Loader
	resolver *structure.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testhelpers.NewScenario(start)
	logger := zaptest.NewLogger(t)
	return &fixture{
		scenario: s,
		recorder: exceptions.NewRecorder("CRP-1", shared.NewFixedClock(start), shared.NewSequentialGenerator("EX"), logger),
		loader:   NewLoader(s.WorkCenters, logger, 4),
		resolver: structure.NewResolver(s.Structures, s.Items),
	}
}

func (f *fixture) plan(days int, mode entities.CapacityMode) entities.Plan {
	capacity := entities.DefaultCapacityPolicy()
	capacity.Mode = mode
	return f.scenario.Plan("CRP-1", f.scenario.Horizon(days, 1), entities.DefaultPlanningPolicy(), capacity)
}

func (f *fixture) order(t *testing.T, id, product string, qty int64, day int) entities.PlannedOrder {
	t.Helper()
	o, err := entities.NewPlannedOrder(id, "CRP-1", entities.ProductID(product), entities.Make,
		decimal.NewFromInt(qty), f.scenario.Day(day), f.scenario.Day(day+1))
	require.NoError(t, err)
	return *o
}

func (f *fixture) load(t *testing.T, plan entities.Plan, orders ...entities.PlannedOrder) ([]entities.CapacityRequirement, map[string]bool) {
	t.Helper()
	result, err := f.loader.Load(context.Background(), plan, orders, f.resolver, f.recorder)
	require.NoError(t, err)
	return result.CapacityRequirements, result.LateOrders
}

func bucketOn(reqs []entities.CapacityRequirement, wc entities.WorkCenterID, date time.Time) *entities.CapacityRequirement {
	for i := range reqs {
		if reqs[i].WorkCenterID == wc && reqs[i].BucketDate.Equal(date) {
			return &reqs[i]
		}
	}
	return nil
}

func hours(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// three orders load 52h on a 40h/day work center on day 5
func overloadedDayFive(t *testing.T, f *fixture) []entities.PlannedOrder {
	f.scenario.WorkCenter("W", 40, false).
		Routing("P", testhelpers.Op(10, "W", "0", "1", "0", "0"))
	return []entities.PlannedOrder{
		f.order(t, "O1", "P", 20, 5),
		f.order(t, "O2", "P", 20, 5),
		f.order(t, "O3", "P", 12, 5),
	}
}

func TestLoad_FiniteShiftsExcessToNextDayWithSpare(t *testing.T) {
	f := newFixture(t)
	orders := overloadedDayFive(t, f)

	reqs, late := f.load(t, f.plan(10, entities.FiniteCapacity), orders...)

	day5 := bucketOn(reqs, "W", f.scenario.Day(5))
	require.NotNil(t, day5)
	assert.True(t, hours(40).Equal(day5.RequiredHours), "got %s", day5.RequiredHours)
	assert.True(t, hours(12).Equal(day5.ShiftedOut))
	require.NotNil(t, day5.ShiftedTo)
	assert.Equal(t, f.scenario.Day(6), *day5.ShiftedTo)
	assert.Len(t, day5.Details, 3)
	assert.Equal(t, entities.LoadOverloaded, day5.Status)

	day6 := bucketOn(reqs, "W", f.scenario.Day(6))
	require.NotNil(t, day6)
	assert.True(t, hours(12).Equal(day6.RequiredHours))
	assert.True(t, hours(12).Equal(day6.ShiftedIn))
	assert.Equal(t, entities.LoadOK, day6.Status)

	assert.Zero(t, f.recorder.Count(entities.CapacityBottleneck))
	assert.Empty(t, late)
}

func TestLoad_FiniteSkipsDaysWithoutEnoughSpare(t *testing.T) {
	f := newFixture(t)
	orders := overloadedDayFive(t, f)
	f.scenario.WorkCenters.SetCalendarHours("W", f.scenario.Day(6), hours(8))
	orders = append(orders, f.order(t, "O4", "Q", 1, 7))
	f.scenario.Routing("Q", testhelpers.Op(10, "W", "0", "30", "0", "0"))

	reqs, _ := f.load(t, f.plan(10, entities.FiniteCapacity), orders...)

	day5 := bucketOn(reqs, "W", f.scenario.Day(5))
	require.NotNil(t, day5.ShiftedTo)
	// day 6 has 8h and day 7 only 10h spare, so the block lands on day 8
	assert.Equal(t, f.scenario.Day(8), *day5.ShiftedTo)
}

func TestLoad_FiniteExhaustedHorizonRaisesBottleneck(t *testing.T) {
	f := newFixture(t)
	orders := overloadedDayFive(t, f)

	_, late := f.load(t, f.plan(6, entities.FiniteCapacity), orders...)

	assert.Equal(t, 1, f.recorder.Count(entities.CapacityBottleneck))
	assert.Equal(t, map[string]bool{"O1": true, "O2": true, "O3": true}, late)
	ex := f.recorder.Exceptions()
	require.Len(t, ex, 1)
	assert.Equal(t, entities.SeverityCritical, ex[0].Severity)
	assert.Equal(t, entities.WorkCenterID("W"), ex[0].WorkCenterID)
	assert.Equal(t, "add 12 h of capacity on W or move due dates beyond the horizon", ex[0].SuggestedAction)
}

func TestLoad_SplitShiftSpreadsExcess(t *testing.T) {
	f := newFixture(t)
	orders := overloadedDayFive(t, f)
	f.scenario.WorkCenters.SetCalendarHours("W", f.scenario.Day(6), hours(5))
	plan := f.plan(10, entities.FiniteCapacity)
	plan.Capacity.Shift = entities.ShiftSplit

	reqs, _ := f.load(t, plan, orders...)

	assert.True(t, hours(5).Equal(bucketOn(reqs, "W", f.scenario.Day(6)).ShiftedIn))
	assert.True(t, hours(7).Equal(bucketOn(reqs, "W", f.scenario.Day(7)).ShiftedIn))
	day5 := bucketOn(reqs, "W", f.scenario.Day(5))
	assert.Equal(t, f.scenario.Day(7), *day5.ShiftedTo)
}

func TestLoad_InfiniteReportsOverloadWithoutShifting(t *testing.T) {
	f := newFixture(t)
	orders := overloadedDayFive(t, f)

	reqs, late := f.load(t, f.plan(10, entities.InfiniteCapacity), orders...)

	require.Len(t, reqs, 1)
	assert.True(t, hours(52).Equal(reqs[0].RequiredHours))
	assert.True(t, hours(12).Equal(reqs[0].OverCapacity))
	assert.True(t, decimal.NewFromInt(130).Equal(reqs[0].LoadPercent))
	assert.Equal(t, entities.LoadBottleneck, reqs[0].Status)
	assert.Equal(t, 1, f.recorder.Count(entities.InsufficientCapacity))
	assert.Empty(t, late)
}

func TestLoad_InfiniteOverloadSuggestsAction(t *testing.T) {
	tests := []struct {
		name   string
		days   int
		action func(f *fixture) string
	}{
		{"later bucket has spare", 10, func(f *fixture) string {
			return "move 12 h on W to bucket " + f.scenario.Day(6).Format(time.DateOnly)
		}},
		{"no later bucket", 6, func(*fixture) string {
			return "add 12 h of overtime on W or offload to another work center"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			orders := overloadedDayFive(t, f)

			f.load(t, f.plan(tt.days, entities.InfiniteCapacity), orders...)

			ex := f.recorder.Exceptions()
			require.Len(t, ex, 1)
			assert.Equal(t, entities.InsufficientCapacity, ex[0].Type)
			assert.Equal(t, tt.action(f), ex[0].SuggestedAction)
		})
	}
}

func TestLoad_EfficiencyFollowsPolicy(t *testing.T) {
	tests := []struct {
		name      string
		include   bool
		available int64
		load      int64
		status    entities.LoadStatus
	}{
		{"efficiency applied", true, 8, 100, entities.LoadOverloaded},
		{"calendar hours only", false, 10, 80, entities.LoadHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.scenario.WorkCenters.LoadWorkCenters([]*entities.WorkCenter{
				{ID: "W", Name: "Lathe", HoursPerDay: hours(10), Efficiency: decimal.NewFromInt(80)},
			}))
			f.scenario.Routing("P", testhelpers.Op(10, "W", "0", "1", "0", "0"))
			plan := f.plan(10, entities.InfiniteCapacity)
			plan.Capacity.IncludeEfficiency = tt.include

			reqs, _ := f.load(t, plan, f.order(t, "O1", "P", 8, 2))

			require.Len(t, reqs, 1)
			assert.True(t, hours(tt.available).Equal(reqs[0].AvailableHours), "got %s", reqs[0].AvailableHours)
			assert.True(t, hours(tt.load).Equal(reqs[0].LoadPercent), "got %s", reqs[0].LoadPercent)
			assert.Equal(t, tt.status, reqs[0].Status)
			assert.Zero(t, f.recorder.Count(entities.InsufficientCapacity), "load equal to availability is not a shortage")
		})
	}
}

func TestLoad_HoursFollowPolicyFlags(t *testing.T) {
	f := newFixture(t)
	f.scenario.WorkCenter("W", 40, false).
		Routing("P", testhelpers.Op(10, "W", "2", "0.5", "3", "1"))
	plan := f.plan(10, entities.InfiniteCapacity)
	plan.Capacity.IncludeQueueTime = false

	reqs, _ := f.load(t, plan, f.order(t, "O1", "P", 10, 2))

	require.Len(t, reqs, 1)
	assert.True(t, decimal.NewFromInt(8).Equal(reqs[0].RequiredHours), "setup 2 + run 5 + move 1, got %s", reqs[0].RequiredHours)
	assert.True(t, reqs[0].QueueHours.IsZero())
	assert.True(t, decimal.NewFromInt(20).Equal(reqs[0].LoadPercent))
}

func TestLoad_OperationOffsetAndWeeklyBuckets(t *testing.T) {
	f := newFixture(t)
	f.scenario.WorkCenter("W", 8, false)
	op := testhelpers.Op(20, "W", "0", "1", "0", "0")
	op.OffsetDays = 7
	f.scenario.Routing("P", op)
	h := f.scenario.Horizon(28, 7)
	capacity := entities.DefaultCapacityPolicy()
	plan := f.scenario.Plan("CRP-1", h, entities.DefaultPlanningPolicy(), capacity)

	reqs, _ := f.load(t, plan, f.order(t, "O1", "P", 28, 1))

	require.Len(t, reqs, 1)
	assert.Equal(t, 1, reqs[0].BucketIndex)
	assert.True(t, hours(56).Equal(reqs[0].AvailableHours))
	assert.True(t, decimal.NewFromInt(50).Equal(reqs[0].LoadPercent))
}

func TestLoad_MissingRoutingAndWorkCenter(t *testing.T) {
	f := newFixture(t)
	f.scenario.Routing("P", testhelpers.Op(10, "NOWHERE", "1", "1", "0", "0"))

	reqs, _ := f.load(t, f.plan(10, entities.InfiniteCapacity),
		f.order(t, "O1", "P", 1, 1),
		f.order(t, "O2", "P", 1, 2),
		f.order(t, "O3", "R", 1, 1),
	)

	assert.Empty(t, reqs)
	assert.Equal(t, 1, f.recorder.Count(entities.MissingWorkCenter))
	assert.Equal(t, 1, f.recorder.Count(entities.MissingRouting))
}

func TestLoad_SkipsBuyAndClosedOrders(t *testing.T) {
	f := newFixture(t)
	f.scenario.WorkCenter("W", 40, false).Routing("P", testhelpers.Op(10, "W", "0", "1", "0", "0"))

	buy := f.order(t, "B1", "P", 5, 1)
	buy.OrderType = entities.Buy
	cancelled, _, err := f.order(t, "C1", "P", 5, 1).Cancel(start, "not needed")
	require.NoError(t, err)

	reqs, _ := f.load(t, f.plan(10, entities.InfiniteCapacity), buy, cancelled, f.order(t, "M1", "P", 5, 1))

	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Details, 1)
	assert.Equal(t, "M1", reqs[0].Details[0].PlannedOrderID)
}

func TestLoad_BottleneckWorkCentersFirst(t *testing.T) {
	f := newFixture(t)
	f.scenario.WorkCenter("A", 8, false).
		WorkCenter("Z", 8, true).
		Routing("P", testhelpers.Op(10, "A", "1", "0", "0", "0"), testhelpers.Op(20, "Z", "1", "0", "0", "0"))

	reqs, _ := f.load(t, f.plan(5, entities.InfiniteCapacity), f.order(t, "O1", "P", 1, 1))

	require.Len(t, reqs, 2)
	assert.Equal(t, entities.WorkCenterID("Z"), reqs[0].WorkCenterID)
	assert.Equal(t, entities.WorkCenterID("A"), reqs[1].WorkCenterID)
}

func TestLoad_ConcurrentOrdersAccumulateExactly(t *testing.T) {
	f := newFixture(t)
	f.scenario.WorkCenter("W", 1000, false).Routing("P", testhelpers.Op(10, "W", "0", "1", "0", "0"))
	var orders []entities.PlannedOrder
	for i := 0; i < 200; i++ {
		orders = append(orders, f.order(t, fmt.Sprintf("O%03d", i), "P", 1, 3))
	}

	reqs, _ := f.load(t, f.plan(10, entities.InfiniteCapacity), orders...)

	require.Len(t, reqs, 1)
	assert.True(t, hours(200).Equal(reqs[0].RequiredHours))
	assert.Len(t, reqs[0].Details, 200)
}
