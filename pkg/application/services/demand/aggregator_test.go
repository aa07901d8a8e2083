package demand

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func entry(product entities.ProductID, dayOffset int, qty int64, source entities.DemandSource) entities.DemandEntry {
	return entities.DemandEntry{
		ProductID: product,
		Date:      day0.AddDate(0, 0, dayOffset),
		Quantity:  decimal.NewFromInt(qty),
		Source:    source,
	}
}

func TestAppendRejectsNegative(t *testing.T) {
	a := NewAggregator()
	err := a.Append(entry("A", 1, 5, entities.SalesOrderDemand), entry("A", 2, -1, entities.SalesOrderDemand))
	assert.True(t, errors.Is(err, entities.ErrValidation))
	assert.Empty(t, a.Entries("A"), "a rejected batch appends nothing")
}

func TestAppendConcurrent(t *testing.T) {
	a := NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := entry("C", i%5, 2, entities.DependentDemand)
			e.Reference = fmt.Sprintf("PO-%02d", i)
			assert.NoError(t, a.Append(e))
		}(i)
	}
	wg.Wait()

	entries := a.Entries("C")
	require.Len(t, entries, 50)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Date.Before(entries[i-1].Date))
	}
}

func TestBucket(t *testing.T) {
	h, err := entities.NewHorizon(day0, day0.AddDate(0, 0, 13), 7)
	require.NoError(t, err)

	passThrough := entry("P", 3, 99, entities.PhantomPassThrough)
	b := Bucket([]entities.DemandEntry{
		entry("X", -4, 10, entities.SalesOrderDemand),
		entry("X", 2, 5, entities.ForecastDemand),
		entry("X", 8, 7, entities.DependentDemand),
		entry("X", 20, 3, entities.SalesOrderDemand),
		passThrough,
	}, h)

	require.Len(t, b.Gross, 2)
	assert.Equal(t, "15", b.Gross[0].String(), "past due lands in the first bucket")
	assert.Equal(t, "7", b.Gross[1].String())
	require.Len(t, b.Dropped, 1)
	assert.Equal(t, "3", b.Dropped[0].Quantity.String())
}

func TestOrdered(t *testing.T) {
	a := NewAggregator()
	require.NoError(t, a.Append(
		entry("B", 2, 1, entities.SalesOrderDemand),
		entry("A", 5, 1, entities.SalesOrderDemand),
		entry("A", 1, 1, entities.ForecastDemand),
		entry("A", 0, 0, entities.ForecastDemand),
	))

	ordered := a.Ordered()
	require.Len(t, ordered, 3, "zero quantity entries are skipped")
	assert.Equal(t, entities.ProductID("A"), ordered[0].ProductID)
	assert.Equal(t, day0.AddDate(0, 0, 1), ordered[0].Date)
	assert.Equal(t, entities.ProductID("B"), ordered[2].ProductID)
}
