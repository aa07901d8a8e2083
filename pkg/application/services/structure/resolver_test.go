package structure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/memory"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func line(component entities.ProductID, qty int64) entities.BomLine {
	l, err := entities.NewBomLine(component, decimal.NewFromInt(qty), "EA", decimal.Zero)
	if err != nil {
		panic(err)
	}
	return *l
}

func newFixture(t *testing.T) (*memory.StructureRepository, *memory.ItemRepository) {
	t.Helper()
	items := memory.NewItemRepository(4)
	for id, lt := range map[entities.ProductID]int{"A": 2, "B": 5, "C": 1, "D": 7} {
		item, err := entities.NewItem(id, string(id), lt, entities.Make, entities.LotForLot, decimal.Zero)
		require.NoError(t, err)
		items.AddItem(*item)
	}
	return memory.NewStructureRepository(), items
}

func TestGetActiveBom_Selection(t *testing.T) {
	cutover := day0.AddDate(0, 0, 10)
	beforeCutover := cutover.AddDate(0, 0, -1)

	tests := []struct {
		name    string
		boms    []entities.BillOfMaterial
		asOf    time.Time
		wantID  string
		wantErr error
	}{
		{
			name:    "no bom",
			asOf:    day0,
			wantErr: ErrNoActiveStructure,
		},
		{
			name:   "single active non default",
			boms:   []entities.BillOfMaterial{{ID: "V1", ProductID: "A", Status: entities.StructureActive}},
			asOf:   day0,
			wantID: "V1",
		},
		{
			name: "default wins over other active",
			boms: []entities.BillOfMaterial{
				{ID: "V1", ProductID: "A", Status: entities.StructureActive},
				{ID: "V2", ProductID: "A", Status: entities.StructureActive, IsDefault: true},
			},
			asOf:   day0,
			wantID: "V2",
		},
		{
			name: "two actives without default",
			boms: []entities.BillOfMaterial{
				{ID: "V1", ProductID: "A", Status: entities.StructureActive},
				{ID: "V2", ProductID: "A", Status: entities.StructureActive},
			},
			asOf:    day0,
			wantErr: ErrAmbiguousStructure,
		},
		{
			name: "two defaults",
			boms: []entities.BillOfMaterial{
				{ID: "V1", ProductID: "A", Status: entities.StructureActive, IsDefault: true},
				{ID: "V2", ProductID: "A", Status: entities.StructureActive, IsDefault: true},
			},
			asOf:    day0,
			wantErr: ErrAmbiguousStructure,
		},
		{
			name: "draft and obsolete ignored",
			boms: []entities.BillOfMaterial{
				{ID: "V1", ProductID: "A", Status: entities.StructureDraft, IsDefault: true},
				{ID: "V2", ProductID: "A", Status: entities.StructureObsolete, IsDefault: true},
				{ID: "V3", ProductID: "A", Status: entities.StructureActive},
			},
			asOf:   day0,
			wantID: "V3",
		},
		{
			name: "effectivity cutover",
			boms: []entities.BillOfMaterial{
				{ID: "OLD", ProductID: "A", Status: entities.StructureActive, IsDefault: true,
					Effectivity: entities.DateEffectivity{To: &beforeCutover}},
				{ID: "NEW", ProductID: "A", Status: entities.StructureActive, IsDefault: true,
					Effectivity: entities.DateEffectivity{From: &cutover}},
			},
			asOf:   cutover,
			wantID: "NEW",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			structures, items := newFixture(t)
			for _, b := range tt.boms {
				structures.AddBom(b)
			}
			resolver := NewResolver(structures, items)

			bom, err := resolver.GetActiveBom(context.Background(), "A", tt.asOf)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.True(t, errors.Is(err, entities.ErrDataIncomplete))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, bom.ID)
		})
	}
}

func TestGetRouting(t *testing.T) {
	structures, items := newFixture(t)
	structures.AddRouting(entities.Routing{ID: "R1", ProductID: "A", Status: entities.StructureActive, IsDefault: true})
	resolver := NewResolver(structures, items)

	routing, err := resolver.GetRouting(context.Background(), "A", day0)
	require.NoError(t, err)
	assert.Equal(t, "R1", routing.ID)

	_, err = resolver.GetRouting(context.Background(), "B", day0)
	assert.True(t, errors.Is(err, ErrNoActiveStructure))
}

func TestCumulativeLeadTime(t *testing.T) {
	structures, items := newFixture(t)
	structures.AddBom(entities.BillOfMaterial{ID: "BA", ProductID: "A", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("B", 1), line("C", 2)}})
	structures.AddBom(entities.BillOfMaterial{ID: "BC", ProductID: "C", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("D", 1)}})
	resolver := NewResolver(structures, items)

	path, err := resolver.CumulativeLeadTime(context.Background(), "A", day0)
	require.NoError(t, err)

	// A(2) -> C(1) -> D(7) = 10 beats A(2) -> B(5) = 7
	assert.Equal(t, 10, path.TotalLeadTime)
	assert.Equal(t, []entities.ProductID{"A", "C", "D"}, path.Path)
	assert.Equal(t, entities.ProductID("D"), path.Bottleneck)
}

func TestCumulativeLeadTime_PhantomContributesNothing(t *testing.T) {
	structures, items := newFixture(t)
	phantom := line("C", 1)
	phantom.IsPhantom = true
	structures.AddBom(entities.BillOfMaterial{ID: "BA", ProductID: "A", Status: entities.StructureActive,
		Lines: []entities.BomLine{phantom}})
	structures.AddBom(entities.BillOfMaterial{ID: "BC", ProductID: "C", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("B", 1)}})
	resolver := NewResolver(structures, items)

	path, err := resolver.CumulativeLeadTime(context.Background(), "A", day0)
	require.NoError(t, err)
	assert.Equal(t, 7, path.TotalLeadTime, "A(2) + phantom C(0) + B(5)")
}

func TestCumulativeLeadTime_Cycle(t *testing.T) {
	structures, items := newFixture(t)
	structures.AddBom(entities.BillOfMaterial{ID: "BA", ProductID: "A", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("B", 1)}})
	structures.AddBom(entities.BillOfMaterial{ID: "BB", ProductID: "B", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("A", 1)}})
	resolver := NewResolver(structures, items)

	_, err := resolver.CumulativeLeadTime(context.Background(), "A", day0)
	assert.True(t, errors.Is(err, entities.ErrCycleDetected))
}

func TestComponentEdgesIgnoresEffectivity(t *testing.T) {
	structures, items := newFixture(t)
	future := day0.AddDate(1, 0, 0)
	later := line("D", 1)
	later.Effectivity = entities.DateEffectivity{From: &future}
	structures.AddBom(entities.BillOfMaterial{ID: "BA", ProductID: "A", Status: entities.StructureActive,
		Lines: []entities.BomLine{line("C", 1), later}})
	structures.AddBom(entities.BillOfMaterial{ID: "BA-draft", ProductID: "A", Status: entities.StructureDraft,
		Lines: []entities.BomLine{line("B", 1)}})
	resolver := NewResolver(structures, items)

	edges, err := resolver.ComponentEdges(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []entities.ProductID{"C", "D"}, edges)
}
