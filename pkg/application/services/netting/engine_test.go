package netting

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func dec(vs ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func horizon(t *testing.T, days int) entities.Horizon {
	t.Helper()
	h, err := entities.NewHorizon(day0, day0.AddDate(0, 0, days-1), 1)
	require.NoError(t, err)
	return h
}

func TestNet_SingleDemandWithSafetyStock(t *testing.T) {
	h := horizon(t, 12)
	gross := dec(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	gross[10] = decimal.NewFromInt(100)

	reqs, err := NewEngine(zaptest.NewLogger(t)).Net(Input{
		ProductID:   "X",
		Horizon:     h,
		Gross:       gross,
		OnHand:      decimal.NewFromInt(20),
		SafetyStock: decimal.NewFromInt(5),
	}, Policy{IncludeSafetyStock: true})
	require.NoError(t, err)
	require.Len(t, reqs, 12)

	for i, r := range reqs {
		if i == 10 {
			assert.Equal(t, "85", r.Net.String())
			assert.True(t, r.NeedsOrder)
			assert.Equal(t, "5", r.ProjectedOnHand.String())
			continue
		}
		assert.True(t, r.Net.IsZero(), "bucket %d", i)
		assert.False(t, r.NeedsOrder)
	}
}

func TestNet_SafetyStockIgnoredWhenDisabled(t *testing.T) {
	h := horizon(t, 1)
	reqs, err := NewEngine(nil).Net(Input{
		ProductID: "X", Horizon: h, Gross: dec(100),
		OnHand: decimal.NewFromInt(20), SafetyStock: decimal.NewFromInt(5),
	}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, "80", reqs[0].Net.String())
	assert.True(t, reqs[0].SafetyStock.IsZero())
}

func TestNet_ScheduledReceiptsCover(t *testing.T) {
	h := horizon(t, 3)
	reqs, err := NewEngine(nil).Net(Input{
		ProductID: "X", Horizon: h,
		Gross:             dec(10, 30, 10),
		ScheduledReceipts: dec(0, 25, 0),
		OnHand:            decimal.NewFromInt(15),
	}, Policy{IncludeSafetyStock: true})
	require.NoError(t, err)

	// 15-10=5; 5+25-30=0; 0-10=-10
	assert.True(t, reqs[0].Net.IsZero())
	assert.True(t, reqs[1].Net.IsZero())
	assert.Equal(t, "10", reqs[2].Net.String())
}

func TestNet_RejectsNegativeGross(t *testing.T) {
	_, err := NewEngine(nil).Net(Input{ProductID: "X", Horizon: horizon(t, 2), Gross: dec(1, -1)}, Policy{})
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestNet_RejectsBucketMismatch(t *testing.T) {
	_, err := NewEngine(nil).Net(Input{ProductID: "X", Horizon: horizon(t, 3), Gross: dec(1)}, Policy{})
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

// Every record must satisfy the netting identities for arbitrary inputs.
func TestNet_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	engine := NewEngine(nil)
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(15)
		h := horizon(t, n)
		gross := make([]decimal.Decimal, n)
		receipts := make([]decimal.Decimal, n)
		for i := range gross {
			gross[i] = decimal.NewFromInt(int64(rng.Intn(50)))
			receipts[i] = decimal.NewFromInt(int64(rng.Intn(3) * rng.Intn(20)))
		}
		in := Input{
			ProductID: "X", Horizon: h, Gross: gross, ScheduledReceipts: receipts,
			OnHand:      decimal.NewFromInt(int64(rng.Intn(60))),
			SafetyStock: decimal.NewFromInt(int64(rng.Intn(10))),
		}

		reqs, err := engine.Net(in, Policy{IncludeSafetyStock: true})
		require.NoError(t, err)

		for i, r := range reqs {
			assert.False(t, r.Net.IsNegative())
			want := decimal.Max(decimal.Zero, r.Gross.Add(r.SafetyStock).Sub(r.OnHand).Sub(r.ScheduledReceipts))
			assert.True(t, r.Net.Equal(want), "trial %d bucket %d: net %s want %s", trial, i, r.Net, want)
			poh := r.OnHand.Add(r.ScheduledReceipts).Add(r.PlannedReceipt).Sub(r.Gross)
			assert.True(t, r.ProjectedOnHand.Equal(poh))
			assert.Equal(t, r.Net.IsPositive(), r.NeedsOrder)
			if i > 0 {
				assert.True(t, r.OnHand.Equal(reqs[i-1].ProjectedOnHand))
			}
		}
	}
}
