package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestItemRepository(t *testing.T) {
	repo := NewItemRepository(2)
	item, err := entities.NewItem("X", "Widget", 3, entities.Make, entities.LotForLot, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NoError(t, repo.LoadItems([]*entities.Item{item}))

	got, err := repo.GetItem(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 3, got.LeadTimeDays)

	_, err = repo.GetItem(context.Background(), "missing")
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	bad := *item
	bad.LotSizing = entities.FixedOrderQuantity
	assert.Error(t, repo.LoadItems([]*entities.Item{&bad}))
}

func TestInventoryRepository(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()

	_, _, err := repo.GetOnHandAndScheduledReceipts(ctx, "X")
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	lots := []*entities.InventoryLot{
		{ProductID: "X", LotNumber: "L1", Quantity: decimal.NewFromInt(15), Status: entities.Available},
		{ProductID: "X", LotNumber: "L2", Quantity: decimal.NewFromInt(5), Status: entities.Available},
		{ProductID: "X", LotNumber: "L3", Quantity: decimal.NewFromInt(50), Status: entities.Quarantine},
	}
	require.NoError(t, repo.LoadInventoryLots(lots))
	require.NoError(t, repo.LoadScheduledReceipts([]*entities.ScheduledReceipt{
		{ProductID: "X", Date: day0.AddDate(0, 0, 4), Quantity: decimal.NewFromInt(10)},
		{ProductID: "X", Date: day0.AddDate(0, 0, 1), Quantity: decimal.NewFromInt(7)},
	}))

	onHand, receipts, err := repo.GetOnHandAndScheduledReceipts(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "20", onHand.String(), "quarantined stock is not available")
	require.Len(t, receipts, 2)
	assert.Equal(t, "7", receipts[0].Quantity.String())

	repo.RegisterProduct("Y")
	onHand, _, err = repo.GetOnHandAndScheduledReceipts(ctx, "Y")
	require.NoError(t, err)
	assert.True(t, onHand.IsZero())
}

func TestDemandRepositoryHorizonFilter(t *testing.T) {
	repo := NewDemandRepository()
	h, _ := entities.NewHorizon(day0, day0.AddDate(0, 0, 9), 1)
	require.NoError(t, repo.LoadDemands([]*entities.DemandEntry{
		{ProductID: "B", Date: day0.AddDate(0, 0, 3), Quantity: decimal.NewFromInt(1)},
		{ProductID: "A", Date: day0.AddDate(0, 0, -2), Quantity: decimal.NewFromInt(1)},
		{ProductID: "C", Date: day0.AddDate(0, 0, 30), Quantity: decimal.NewFromInt(1)},
	}))

	ids, err := repo.ListDemandedProducts(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []entities.ProductID{"A", "B"}, ids)

	entries, err := repo.GetIndependentDemand(context.Background(), "C", h)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkCenterCalendarOverrides(t *testing.T) {
	repo := NewWorkCenterRepository()
	wc, err := entities.NewWorkCenter("WC1", "Lathe", decimal.NewFromInt(8), false)
	require.NoError(t, err)
	require.NoError(t, repo.LoadWorkCenters([]*entities.WorkCenter{wc}))
	repo.SetCalendarHours("WC1", day0.Add(13*time.Hour), decimal.Zero)

	hours, err := repo.GetWorkCenterCalendar(context.Background(), "WC1", day0)
	require.NoError(t, err)
	assert.True(t, hours.IsZero())

	hours, err = repo.GetWorkCenterCalendar(context.Background(), "WC1", day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "8", hours.String())

	_, err = repo.GetWorkCenterCalendar(context.Background(), "nope", day0)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestPlanRepositoryOutputs(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()

	require.NoError(t, repo.ReplaceOutputs(ctx, "P1", entities.PlanOutputs{
		PlannedOrders: []entities.PlannedOrder{{ID: "O1", PlanID: "P1"}},
		Exceptions:    []entities.Exception{{ID: "E1", PlanID: "P1"}},
	}))

	order, err := repo.GetPlannedOrder(ctx, "O1")
	require.NoError(t, err)
	order.Status = entities.OrderFirmed
	require.NoError(t, repo.SavePlannedOrder(ctx, *order))

	out, err := repo.GetOutputs(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, entities.OrderFirmed, out.PlannedOrders[0].Status)

	require.NoError(t, repo.ReplaceOutputs(ctx, "P1", entities.PlanOutputs{}))
	_, err = repo.GetPlannedOrder(ctx, "O1")
	assert.True(t, errors.Is(err, entities.ErrNotFound), "replaced outputs drop old orders")
	_, err = repo.GetException(ctx, "E1")
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestPlanRepositorySavePlanFrom(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()
	plan := entities.Plan{ID: "P1", Status: entities.PlanDraft, CreatedAt: day0}

	err := repo.SavePlanFrom(ctx, plan, entities.PlanDraft)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
	require.NoError(t, repo.SavePlan(ctx, plan))

	// only one of several concurrent Draft -> Running saves wins
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			next := plan
			next.Status = entities.PlanRunning
			next.RunCount = run
			err := repo.SavePlanFrom(ctx, next, entities.PlanDraft)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
			} else if errors.Is(err, entities.ErrInvalidState) {
				rejected++
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, won)
	assert.Equal(t, 7, rejected)

	stored, err := repo.GetPlan(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, entities.PlanRunning, stored.Status)
}

func TestPlanRepositoryQueries(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()
	completed, draft := entities.PlanCompleted, entities.PlanDraft
	crp := entities.CRPPlan
	firmed := entities.OrderFirmed

	horizon, err := entities.NewHorizon(day0, day0.AddDate(0, 0, 13), 1)
	require.NoError(t, err)
	later, err := entities.NewHorizon(day0.AddDate(0, 1, 0), day0.AddDate(0, 1, 13), 1)
	require.NoError(t, err)
	for _, p := range []entities.Plan{
		{ID: "M1", Type: entities.MRPPlan, Status: completed, Horizon: horizon, CreatedAt: day0},
		{ID: "M2", Type: entities.MRPPlan, Status: draft, Horizon: later, CreatedAt: day0.Add(time.Hour)},
		{ID: "C1", Type: crp, Status: completed, Horizon: horizon, SourcePlanID: "M1", CreatedAt: day0.Add(2 * time.Hour)},
	} {
		require.NoError(t, repo.SavePlan(ctx, p))
	}
	require.NoError(t, repo.ReplaceOutputs(ctx, "M1", entities.PlanOutputs{
		PlannedOrders: []entities.PlannedOrder{
			{ID: "O1", PlanID: "M1", ProductID: "A"},
			{ID: "O2", PlanID: "M1", ProductID: "B", Status: firmed},
		},
	}))
	require.NoError(t, repo.ReplaceOutputs(ctx, "M2", entities.PlanOutputs{
		PlannedOrders: []entities.PlannedOrder{{ID: "O3", PlanID: "M2", ProductID: "A"}},
	}))
	require.NoError(t, repo.ReplaceOutputs(ctx, "C1", entities.PlanOutputs{
		CapacityRequirements: []entities.CapacityRequirement{
			{WorkCenterID: "W1", BucketDate: day0, Status: entities.LoadOK},
			{WorkCenterID: "W1", BucketDate: day0.AddDate(0, 0, 1), Status: entities.LoadOverloaded},
			{WorkCenterID: "W2", BucketDate: day0, Status: entities.LoadBottleneck},
		},
	}))

	planIDs := func(filter repositories.PlanFilter) []entities.PlanID {
		plans, err := repo.ListPlans(ctx, filter)
		require.NoError(t, err)
		var ids []entities.PlanID
		for _, p := range plans {
			ids = append(ids, p.ID)
		}
		return ids
	}
	assert.Equal(t, []entities.PlanID{"M1", "M2", "C1"}, planIDs(repositories.PlanFilter{}))
	assert.Equal(t, []entities.PlanID{"M1", "C1"}, planIDs(repositories.PlanFilter{Status: &completed}))
	assert.Equal(t, []entities.PlanID{"C1"}, planIDs(repositories.PlanFilter{Type: &crp}))
	assert.Equal(t, []entities.PlanID{"C1"}, planIDs(repositories.PlanFilter{SourcePlanID: "M1"}))
	assert.Equal(t, []entities.PlanID{"M2"}, planIDs(repositories.PlanFilter{From: day0.AddDate(0, 0, 20)}))

	orderIDs := func(filter repositories.PlannedOrderFilter) []string {
		orders, err := repo.ListPlannedOrders(ctx, filter)
		require.NoError(t, err)
		var ids []string
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		return ids
	}
	assert.Equal(t, []string{"O1", "O2", "O3"}, orderIDs(repositories.PlannedOrderFilter{}))
	assert.Equal(t, []string{"O1", "O3"}, orderIDs(repositories.PlannedOrderFilter{ProductID: "A"}))
	assert.Equal(t, []string{"O2"}, orderIDs(repositories.PlannedOrderFilter{Status: &firmed}))
	assert.Equal(t, []string{"O3"}, orderIDs(repositories.PlannedOrderFilter{PlanID: "M2"}))

	reqs, err := repo.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: "C1", WorkCenterID: "W1"})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
	reqs, err = repo.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: "C1", OnlyOverloaded: true})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
	reqs, err = repo.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: "C1", To: day0})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}
