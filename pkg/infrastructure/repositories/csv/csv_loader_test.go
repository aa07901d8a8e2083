package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func requiredFiles() map[string]string {
	return map[string]string{
		"items.csv": `product_id,description,lead_time_days,replenishment,lot_sizing,fixed_order_qty,periods_of_supply,min_order_qty,max_order_qty,safety_stock,unit_of_measure
A,Assembly,2,Make,L4L,,,,,0,
B,Bracket,3,Buy,FOQ,50,,,,5,EA
C,Casting,1,Buy,POS,,7,,,,KG
`,
		"bom.csv": `bom_id,parent_id,version,status,is_default,component_id,quantity_per,unit,scrap_pct,effective_from,effective_to,phantom
BOM-A,A,1,Active,true,B,2,EA,10,,,false
BOM-A,A,1,Active,true,C,0.5,KG,,2025-01-01,2025-06-30,false
`,
		"inventory.csv": `product_id,lot_number,location,quantity,receipt_date,status
B,L1,MAIN,12,2024-12-01,Available
B,L2,MAIN,4,,Quarantine
`,
		"demands.csv": `product_id,need_date,quantity,source,reference
A,2025-01-20,10,SalesOrder,SO-1
`,
	}
}

func TestLoadScenarioRequiredOnly(t *testing.T) {
	dir := writeFiles(t, requiredFiles())

	s, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	require.Len(t, s.Items, 3)
	assert.Equal(t, entities.Buy, s.Items[1].Replenishment)
	assert.Equal(t, entities.FixedOrderQuantity, s.Items[1].LotSizing)
	assert.True(t, s.Items[1].FixedOrderQty.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 7, s.Items[2].PeriodsOfSupply)
	assert.Equal(t, "KG", s.Items[2].UnitOfMeasure)
	assert.Equal(t, "EA", s.Items[0].UnitOfMeasure)

	require.Len(t, s.Boms, 1)
	bom := s.Boms[0]
	assert.True(t, bom.IsDefault)
	assert.Equal(t, entities.StructureActive, bom.Status)
	require.Len(t, bom.Lines, 2)
	assert.True(t, bom.Lines[0].NetQuantity.Equal(decimal.RequireFromString("2.2")))
	require.NotNil(t, bom.Lines[1].Effectivity.To)
	assert.False(t, bom.Lines[1].Effectivity.Contains(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))

	require.Len(t, s.Lots, 2)
	assert.Equal(t, entities.Quarantine, s.Lots[1].Status)
	require.Len(t, s.Demands, 1)
	assert.Equal(t, "SO-1", s.Demands[0].Reference)

	assert.Empty(t, s.Receipts)
	assert.Empty(t, s.WorkCenters)
	assert.Empty(t, s.Routings)
	assert.Empty(t, s.Calendar)
}

func TestLoadScenarioWithCapacityData(t *testing.T) {
	files := requiredFiles()
	files["receipts.csv"] = `product_id,due_date,quantity,reference
C,2025-01-05,30,PO-9
`
	files["workcenters.csv"] = `work_center_id,name,hours_per_day,efficiency,is_bottleneck
WELD,Welding,8,90,true
PAINT,Paint shop,16,,false
`
	files["routings.csv"] = `routing_id,product_id,version,status,is_default,sequence,work_center_id,setup_hours,run_hours_per_unit,queue_hours,move_hours,offset_days
R-A,A,1,Active,true,20,PAINT,0.5,0.1,,,1
R-A,A,1,Active,true,10,WELD,1,0.25,2,0.5,0
`
	files["calendar.csv"] = `work_center_id,date,hours
WELD,2025-01-06,0
`
	dir := writeFiles(t, files)

	s, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	require.Len(t, s.WorkCenters, 2)
	assert.True(t, s.WorkCenters[0].IsBottleneck)
	assert.True(t, s.WorkCenters[0].Efficiency.Equal(decimal.NewFromInt(90)))
	assert.True(t, s.WorkCenters[1].Efficiency.Equal(decimal.NewFromInt(100)))

	require.Len(t, s.Routings, 1)
	ops := s.Routings[0].Operations
	require.Len(t, ops, 2)
	assert.Equal(t, 10, ops[0].Sequence, "operations are ordered by sequence")
	assert.Equal(t, 1, ops[1].OffsetDays)

	repos, err := s.Populate()
	require.NoError(t, err)

	ctx := context.Background()
	onHand, receipts, err := repos.Inventory.GetOnHandAndScheduledReceipts(ctx, "B")
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(12)), "quarantined stock is not on hand")
	assert.Empty(t, receipts)

	onHand, receipts, err = repos.Inventory.GetOnHandAndScheduledReceipts(ctx, "A")
	require.NoError(t, err, "items without stock are registered")
	assert.True(t, onHand.IsZero())
	assert.Empty(t, receipts)

	_, receipts, err = repos.Inventory.GetOnHandAndScheduledReceipts(ctx, "C")
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	hours, err := repos.WorkCenters.GetWorkCenterCalendar(ctx, "WELD", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, hours.IsZero())

	routings, err := repos.Structures.ListRoutings(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, routings, 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errMsg  string
	}{
		{
			name:    "header mismatch",
			file:    "items.csv",
			content: "part_number,description\nA,x\n",
			errMsg:  "items CSV header mismatch",
		},
		{
			name: "bad lead time",
			file: "items.csv",
			content: `product_id,description,lead_time_days,replenishment,lot_sizing,fixed_order_qty,periods_of_supply,min_order_qty,max_order_qty,safety_stock,unit_of_measure
A,Assembly,two,Make,L4L,,,,,0,
`,
			errMsg: "items CSV row 2: invalid lead_time_days",
		},
		{
			name: "short row",
			file: "demands.csv",
			content: `product_id,need_date,quantity,source,reference
A,2025-01-20,10
`,
			errMsg: "demands CSV row 2: expected 5 columns, got 3",
		},
		{
			name: "bad date",
			file: "demands.csv",
			content: `product_id,need_date,quantity,source,reference
A,20/01/2025,10,SalesOrder,
`,
			errMsg: "expected YYYY-MM-DD",
		},
		{
			name: "self referencing bom",
			file: "bom.csv",
			content: `bom_id,parent_id,version,status,is_default,component_id,quantity_per,unit,scrap_pct,effective_from,effective_to,phantom
BOM-A,A,1,Active,true,A,1,EA,,,,false
`,
			errMsg: "BOM CSV row 2",
		},
		{
			name: "bom id reused for another parent",
			file: "bom.csv",
			content: `bom_id,parent_id,version,status,is_default,component_id,quantity_per,unit,scrap_pct,effective_from,effective_to,phantom
BOM-A,A,1,Active,true,B,1,EA,,,,false
BOM-A,C,1,Active,true,B,1,EA,,,,false
`,
			errMsg: "BOM CSV row 3: bom BOM-A belongs to A",
		},
		{
			name: "unknown status",
			file: "inventory.csv",
			content: `product_id,lot_number,location,quantity,receipt_date,status
B,L1,MAIN,12,,Lost
`,
			errMsg: "inventory CSV row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := requiredFiles()
			files[tt.file] = tt.content
			dir := writeFiles(t, files)

			_, err := NewLoader().LoadScenario(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenarioMissingRequiredFile(t *testing.T) {
	files := requiredFiles()
	delete(files, "demands.csv")
	dir := writeFiles(t, files)

	_, err := NewLoader().LoadScenario(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
