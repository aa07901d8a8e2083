package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/mrpcrp/pkg/interfaces/cli/output"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MRP_LOG_LEVEL", "error")
	color.NoColor = true

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func generated(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenario")
	_, err := execute(t, "generate", "--items", "40", "--max-depth", "3", "--demands", "5",
		"--work-centers", "3", "--seed", "7", "--start", "2025-01-06", "--output", dir)
	require.NoError(t, err)
	return dir
}

func writeCycleScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"items.csv": "product_id,description,lead_time_days,replenishment,lot_sizing,fixed_order_qty,periods_of_supply,min_order_qty,max_order_qty,safety_stock,unit_of_measure\n" +
			"A,,1,Make,L4L,,,,,,\nB,,1,Make,L4L,,,,,,\n",
		"bom.csv": "bom_id,parent_id,version,status,is_default,component_id,quantity_per,unit,scrap_pct,effective_from,effective_to,phantom\n" +
			"BA,A,1,Active,true,B,1,EA,,,,false\nBB,B,1,Active,true,A,1,EA,,,,false\n",
		"inventory.csv": "product_id,lot_number,location,quantity,receipt_date,status\n",
		"demands.csv":   "product_id,need_date,quantity,source,reference\nA,2025-01-20,5,SalesOrder,SO-1\nGHOST,2025-01-20,1,SalesOrder,SO-2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestGenerateIsReproducible(t *testing.T) {
	dir := generated(t)
	for _, name := range []string{"items.csv", "bom.csv", "demands.csv", "inventory.csv", "workcenters.csv", "routings.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	other := filepath.Join(t.TempDir(), "again")
	require.NoError(t, NewGenerator(GenerateConfig{Items: 40, MaxDepth: 3, Demands: 5, Inventory: 0.5, WorkCenters: 3, Seed: 7,
		Start: mustDate(t, "2025-01-06"), HorizonDays: 90, OutputDir: other}).Generate())

	for _, name := range []string{"items.csv", "bom.csv", "demands.csv", "inventory.csv", "routings.csv"} {
		a, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(other, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}

	scenario, err := csv.NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Len(t, scenario.Items, 40)
	assert.Len(t, scenario.Demands, 5)
	assert.Len(t, scenario.WorkCenters, 3)
	assert.NotEmpty(t, scenario.Routings)
	assert.Empty(t, validateScenario(scenario))
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "--scenario", generated(t))
	require.NoError(t, err)
	assert.Contains(t, out, "scenario is valid: 40 items")

	out, err = execute(t, "validate", "--scenario", writeCycleScenario(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.Contains(t, out, "BOM cycle detected")
	assert.Contains(t, out, "demand for GHOST which has no item record")
}

func TestRunWithCapacityWritesBothPlans(t *testing.T) {
	dir := generated(t)
	outDir := t.TempDir()
	t.Setenv("MRP_STORAGE_PATH", filepath.Join(t.TempDir(), "plans.db"))
	metricsPath := filepath.Join(t.TempDir(), "mrp.prom")
	t.Setenv("MRP_METRICS_PATH", metricsPath)

	_, err := execute(t, "run", "--scenario", dir, "--start", "2025-01-06", "--crp", "--format", "json", "--output", outDir)
	require.NoError(t, err)

	var mrp, crp output.Report
	readJSON(t, filepath.Join(outDir, "mrp", "plan.json"), &mrp)
	readJSON(t, filepath.Join(outDir, "crp", "plan.json"), &crp)

	assert.Equal(t, "Completed", mrp.Plan.Status)
	assert.NotEmpty(t, mrp.PlannedOrders)
	assert.NotEmpty(t, mrp.CriticalPaths)
	assert.Equal(t, "CRP", crp.Plan.Type)
	assert.Equal(t, "Completed", crp.Plan.Status)
	assert.Empty(t, crp.PlannedOrders)
	assert.NotEmpty(t, crp.Capacity)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mrp_plan_runs_total")

	_, err = os.Stat(os.Getenv("MRP_STORAGE_PATH"))
	assert.NoError(t, err)
}

func TestRunTextToStdout(t *testing.T) {
	out, err := execute(t, "run", "--scenario", generated(t), "--start", "2025-01-06")
	require.NoError(t, err)
	assert.Contains(t, out, "MRP plan MRP-")
	assert.Contains(t, out, "Planned Orders")
}

func TestRunFailedPlanReturnsError(t *testing.T) {
	out, err := execute(t, "run", "--scenario", writeCycleScenario(t), "--start", "2025-01-06", "--crp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, out, "Failed")
	assert.NotContains(t, out, "CRP plan", "no CRP plan runs on a failed MRP plan")
}

func TestRunRequiresScenario(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario")
}

func TestPlansLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plans.db")
	t.Setenv("MRP_STORAGE_PATH", dbPath)
	_, err := execute(t, "run", "--scenario", generated(t), "--start", "2025-01-06", "--format", "json", "--output", t.TempDir())
	require.NoError(t, err)

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	plans, err := store.ListPlans(context.Background(), repositories.PlanFilter{})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	plan := plans[0]
	outputs, err := store.GetOutputs(context.Background(), plan.ID)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NotEmpty(t, outputs.PlannedOrders)

	out, err := execute(t, "plans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, string(plan.ID))
	assert.Contains(t, out, plan.Number)

	out, err = execute(t, "plans", "firm", outputs.PlannedOrders[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "is Firmed")

	out, err = execute(t, "plans", "approve", string(plan.ID), "--by", "planner")
	require.NoError(t, err)
	assert.Contains(t, out, "is Approved")

	_, err = execute(t, "plans", "approve", string(plan.ID), "--by", "planner")
	assert.ErrorIs(t, err, entities.ErrInvalidState, "an approved plan cannot be approved again")

	out, err = execute(t, "plans", "show", string(plan.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Approved")
}

func TestPlansQueries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plans.db")
	t.Setenv("MRP_STORAGE_PATH", dbPath)
	_, err := execute(t, "run", "--scenario", generated(t), "--start", "2025-01-06", "--crp", "--format", "json", "--output", t.TempDir())
	require.NoError(t, err)

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	crpType := entities.CRPPlan
	crps, err := store.ListPlans(ctx, repositories.PlanFilter{Type: &crpType})
	require.NoError(t, err)
	require.Len(t, crps, 1)
	crp := crps[0]
	mrp, err := store.GetPlan(ctx, crp.SourcePlanID)
	require.NoError(t, err)
	orders, err := store.ListPlannedOrders(ctx, repositories.PlannedOrderFilter{PlanID: mrp.ID})
	require.NoError(t, err)
	reqs, err := store.ListCapacityRequirements(ctx, repositories.CapacityFilter{PlanID: crp.ID})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NotEmpty(t, orders)
	require.NotEmpty(t, reqs)

	out, err := execute(t, "plans", "list", "--type", "CRP")
	require.NoError(t, err)
	assert.Contains(t, out, crp.Number)
	assert.NotContains(t, out, mrp.Number)

	out, err = execute(t, "plans", "list", "--status", "Completed", "--source", string(mrp.ID))
	require.NoError(t, err)
	assert.Contains(t, out, crp.Number)

	_, err = execute(t, "plans", "list", "--status", "Finished")
	assert.ErrorIs(t, err, entities.ErrValidation)

	product := orders[0].ProductID
	out, err = execute(t, "plans", "orders", "--product", string(product), "--status", "Suggested")
	require.NoError(t, err)
	assert.Contains(t, out, orders[0].ID)
	for _, o := range orders {
		if o.ProductID != product {
			assert.NotContains(t, out, o.ID)
		}
	}

	wc := string(reqs[0].WorkCenterID)
	out, err = execute(t, "plans", "load", string(crp.ID), "--work-center", wc)
	require.NoError(t, err)
	assert.Contains(t, out, wc)

	_, err = execute(t, "plans", "load", string(crp.ID), "--from", "06/01/2025")
	assert.ErrorIs(t, err, entities.ErrValidation)
	_, err = execute(t, "plans", "load", "ghost")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestPlansNeedStore(t *testing.T) {
	t.Setenv("MRP_STORAGE_PATH", "")
	_, err := execute(t, "plans", "list")
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestScheduleStopsAfterRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	out, err := execute(t, "schedule", "--scenario", generated(t), "--cron", "@every 1s", "--runs", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "ok MRP-")
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	_, err := execute(t, "schedule", "--scenario", generated(t), "--cron", "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}
