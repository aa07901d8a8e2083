package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

var now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *PlanStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "mrp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newPlan(t *testing.T, id entities.PlanID) entities.Plan {
	t.Helper()
	h, err := entities.NewHorizon(now, now.AddDate(0, 0, 27), 7)
	require.NoError(t, err)
	plan, _, err := entities.NewPlan(id, "MRP-"+string(id), entities.MRPPlan, h,
		entities.DefaultPlanningPolicy(), entities.DefaultCapacityPolicy(), now)
	require.NoError(t, err)
	return *plan
}

func sampleOutputs(t *testing.T, planID entities.PlanID) entities.PlanOutputs {
	t.Helper()
	order, err := entities.NewPlannedOrder("PO-1", planID, "BOLT", entities.Buy, decimal.RequireFromString("22.5"), now, now.AddDate(0, 0, 3))
	require.NoError(t, err)
	return entities.PlanOutputs{
		Requirements: []entities.Requirement{
			{PlanID: planID, ProductID: "BOLT", BucketIndex: 0, Gross: decimal.NewFromInt(30), Net: decimal.NewFromInt(10)},
			{PlanID: planID, ProductID: "BOLT", BucketIndex: 1, Gross: decimal.NewFromInt(5)},
		},
		PlannedOrders: []entities.PlannedOrder{*order},
		CapacityRequirements: []entities.CapacityRequirement{{
			PlanID: planID, WorkCenterID: "W", AvailableHours: decimal.NewFromInt(40), RequiredHours: decimal.NewFromInt(52),
			Details: []entities.LoadDetail{{PlannedOrderID: "PO-1", TotalHours: decimal.NewFromInt(52)}},
		}},
		Exceptions: []entities.Exception{{
			ID: "EX-1", PlanID: planID, ProductID: "BOLT", Type: entities.MissingBom,
			Severity: entities.SeverityCritical, Message: "no bom", CreatedAt: now,
		}},
	}
}

func TestPlanRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	plan := newPlan(t, "P1")

	require.NoError(t, store.SavePlan(ctx, plan))
	running, _, err := plan.Start(now)
	require.NoError(t, err)
	done, _, err := running.Complete(now.Add(time.Minute), entities.PlanSummary{
		GeneratedOrders:      3,
		UnresolvedBySeverity: map[entities.Severity]int{entities.SeverityCritical: 2},
	})
	require.NoError(t, err)
	require.NoError(t, store.SavePlan(ctx, done))

	got, err := store.GetPlan(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, entities.PlanCompleted, got.Status)
	assert.Equal(t, 1, got.RunCount)
	assert.Equal(t, 7, got.Horizon.BucketDays)
	assert.True(t, got.Horizon.Start.Equal(plan.Horizon.Start))
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.UnresolvedBySeverity[entities.SeverityCritical])
	assert.True(t, got.Capacity.Thresholds.Bottleneck.Equal(decimal.NewFromInt(120)))

	_, err = store.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, store.SavePlan(ctx, newPlan(t, "P0")))
	plans, err := store.ListPlans(ctx, repositories.PlanFilter{})
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestSavePlanFromGuardsStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	plan := newPlan(t, "P1")

	running, _, err := plan.Start(now)
	require.NoError(t, err)
	assert.ErrorIs(t, store.SavePlanFrom(ctx, running, entities.PlanDraft), entities.ErrNotFound)

	require.NoError(t, store.SavePlan(ctx, plan))
	require.NoError(t, store.SavePlanFrom(ctx, running, entities.PlanDraft))

	// a second start computed from the same Draft copy loses
	again := running
	again.RunCount = 2
	err = store.SavePlanFrom(ctx, again, entities.PlanDraft)
	assert.ErrorIs(t, err, entities.ErrInvalidState)
	assert.Contains(t, err.Error(), "is Running")

	got, err := store.GetPlan(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, entities.PlanRunning, got.Status)
	assert.Equal(t, 1, got.RunCount)
}

func TestQueriesFilterAcrossPlans(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	first := newPlan(t, "P1")
	second := newPlan(t, "P2")
	second.CreatedAt = now.Add(time.Hour)
	second.Status = entities.PlanCompleted
	require.NoError(t, store.SavePlan(ctx, first))
	require.NoError(t, store.SavePlan(ctx, second))
	require.NoError(t, store.ReplaceOutputs(ctx, "P1", sampleOutputs(t, "P1")))
	// order and exception ids are unique across plans
	other, err := entities.NewPlannedOrder("PO-2", "P2", "NUT", entities.Buy, decimal.NewFromInt(4), now, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	outputs := sampleOutputs(t, "P2")
	outputs.PlannedOrders[0].ID = "PO-3"
	outputs.PlannedOrders = append(outputs.PlannedOrders, *other)
	outputs.Exceptions[0].ID = "EX-2"
	require.NoError(t, store.ReplaceOutputs(ctx, "P2", outputs))

	completed := entities.PlanCompleted
	crp := entities.CRPPlan
	plans, err := store.ListPlans(ctx, repositories.PlanFilter{Status: &completed})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, entities.PlanID("P2"), plans[0].ID)
	plans, err = store.ListPlans(ctx, repositories.PlanFilter{Type: &crp})
	require.NoError(t, err)
	assert.Empty(t, plans)
	plans, err = store.ListPlans(ctx, repositories.PlanFilter{From: now.AddDate(0, 2, 0)})
	require.NoError(t, err)
	assert.Empty(t, plans, "horizon ends before the window")

	tests := []struct {
		name   string
		filter repositories.PlannedOrderFilter
		want   []string
	}{
		{"all plans", repositories.PlannedOrderFilter{}, []string{"PO-1", "PO-3", "PO-2"}},
		{"by product", repositories.PlannedOrderFilter{ProductID: "BOLT"}, []string{"PO-1", "PO-3"}},
		{"by plan", repositories.PlannedOrderFilter{PlanID: "P2"}, []string{"PO-3", "PO-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := store.ListPlannedOrders(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, o := range orders {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	order, err := store.GetPlannedOrder(ctx, "PO-2")
	require.NoError(t, err)
	firmed, _, err := order.Firm(now)
	require.NoError(t, err)
	require.NoError(t, store.SavePlannedOrder(ctx, firmed))
	status := entities.OrderFirmed
	orders, err := store.ListPlannedOrders(ctx, repositories.PlannedOrderFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "PO-2", orders[0].ID)

	reqs, err := store.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: "P1", WorkCenterID: "W"})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	reqs, err = store.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: "P1", WorkCenterID: "X"})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestOutputsReplaceAndUpdate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	plan := newPlan(t, "P1")
	require.NoError(t, store.SavePlan(ctx, plan))
	require.NoError(t, store.ReplaceOutputs(ctx, plan.ID, sampleOutputs(t, plan.ID)))

	out, err := store.GetOutputs(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, out.Requirements, 2)
	assert.Equal(t, 1, out.Requirements[1].BucketIndex)
	require.Len(t, out.PlannedOrders, 1)
	assert.True(t, decimal.RequireFromString("22.5").Equal(out.PlannedOrders[0].Quantity))
	require.Len(t, out.CapacityRequirements, 1)
	assert.Len(t, out.CapacityRequirements[0].Details, 1)
	require.Len(t, out.Exceptions, 1)

	order, err := store.GetPlannedOrder(ctx, "PO-1")
	require.NoError(t, err)
	firmed, _, err := order.Firm(now)
	require.NoError(t, err)
	require.NoError(t, store.SavePlannedOrder(ctx, firmed))
	order, err = store.GetPlannedOrder(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, entities.OrderFirmed, order.Status)

	ex, err := store.GetException(ctx, "EX-1")
	require.NoError(t, err)
	resolved, _, err := ex.Resolve("planner", "ok", now)
	require.NoError(t, err)
	require.NoError(t, store.SaveException(ctx, resolved))
	ex, err = store.GetException(ctx, "EX-1")
	require.NoError(t, err)
	assert.True(t, ex.IsResolved)

	// a rerun replaces everything
	require.NoError(t, store.ReplaceOutputs(ctx, plan.ID, entities.PlanOutputs{}))
	out, err = store.GetOutputs(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, out.PlannedOrders)
	_, err = store.GetPlannedOrder(ctx, "PO-1")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, store.SavePlannedOrder(ctx, firmed), entities.ErrNotFound)
	assert.ErrorIs(t, store.SaveException(ctx, resolved), entities.ErrNotFound)
}

func TestOutputsRequireStoredPlan(t *testing.T) {
	store := newStore(t)
	err := store.ReplaceOutputs(context.Background(), "ghost", sampleOutputs(t, "ghost"))
	assert.Error(t, err)
}
