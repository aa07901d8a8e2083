package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestPlan(t *testing.T) Plan {
	t.Helper()
	h, err := NewHorizon(testNow, testNow.AddDate(0, 0, 29), 1)
	require.NoError(t, err)
	p, events, err := NewPlan("P1", "MRP-0001", MRPPlan, h, DefaultPlanningPolicy(), DefaultCapacityPolicy(), testNow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventPlanCreated, events[0].Name)
	return *p
}

func TestPlanLifecycle(t *testing.T) {
	p := newTestPlan(t)
	assert.Equal(t, PlanDraft, p.Status)

	running, events, err := p.Start(testNow)
	require.NoError(t, err)
	assert.Equal(t, PlanRunning, running.Status)
	assert.Equal(t, PlanDraft, p.Status, "transition must not mutate the receiver")
	assert.Equal(t, EventPlanStarted, events[0].Name)

	_, _, err = running.Start(testNow)
	assert.True(t, errors.Is(err, ErrInvalidState), "a running plan cannot be started again")

	completed, _, err := running.Complete(testNow.Add(time.Minute), PlanSummary{GeneratedOrders: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, completed.Summary.GeneratedOrders)

	approved, events, err := completed.Approve(testNow.Add(time.Hour), "planner")
	require.NoError(t, err)
	assert.Equal(t, PlanApproved, approved.Status)
	assert.Equal(t, "planner", approved.ApprovedBy)
	assert.Equal(t, "planner", events[0].Payload["by"])
	assert.True(t, approved.IsImmutable())

	_, _, err = approved.Cancel(testNow, "late")
	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "Approved", stateErr.From)
}

func TestPlanTransitionTable(t *testing.T) {
	statuses := []PlanStatus{PlanDraft, PlanRunning, PlanCompleted, PlanFailed, PlanApproved, PlanCancelled}
	allowed := map[string][]PlanStatus{
		"start":    {PlanDraft},
		"complete": {PlanRunning},
		"fail":     {PlanRunning},
		"approve":  {PlanCompleted},
		"cancel":   {PlanDraft, PlanCompleted, PlanFailed},
		"redraft":  {PlanFailed},
	}
	apply := map[string]func(Plan) error{
		"start":    func(p Plan) error { _, _, err := p.Start(testNow); return err },
		"complete": func(p Plan) error { _, _, err := p.Complete(testNow, PlanSummary{}); return err },
		"fail":     func(p Plan) error { _, _, err := p.Fail(testNow, "x", nil); return err },
		"approve":  func(p Plan) error { _, _, err := p.Approve(testNow, "u"); return err },
		"cancel":   func(p Plan) error { _, _, err := p.Cancel(testNow, "x"); return err },
		"redraft":  func(p Plan) error { _, _, err := p.Redraft(testNow); return err },
	}

	base := newTestPlan(t)
	for action, fn := range apply {
		for _, status := range statuses {
			ok := false
			for _, s := range allowed[action] {
				if s == status {
					ok = true
				}
			}
			t.Run(action+"_from_"+status.String(), func(t *testing.T) {
				p := base
				p.Status = status
				err := fn(p)
				if ok {
					assert.NoError(t, err)
				} else {
					assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
				}
			})
		}
	}
}

func TestNewPlanRejectsBadThresholds(t *testing.T) {
	h, _ := NewHorizon(testNow, testNow, 1)
	capacity := DefaultCapacityPolicy()
	capacity.Thresholds.Overload = capacity.Thresholds.Bottleneck
	_, _, err := NewPlan("P", "N", CRPPlan, h, DefaultPlanningPolicy(), capacity, testNow)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestHorizonBuckets(t *testing.T) {
	start := time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)
	h, err := NewHorizon(start, start.AddDate(0, 0, 9), 7)
	require.NoError(t, err)

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, DayOf(start), h.BucketStart(0))
	assert.Len(t, h.BucketDaysOf(1), 3, "last bucket is clipped to the horizon end")

	idx, ok := h.BucketIndex(start.AddDate(0, 0, -5))
	assert.True(t, ok)
	assert.Equal(t, 0, idx, "past due maps to the first bucket")

	idx, ok = h.BucketIndex(start.AddDate(0, 0, 8))
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = h.BucketIndex(start.AddDate(0, 0, 10))
	assert.False(t, ok)

	_, err = NewHorizon(start, start.AddDate(0, 0, -1), 1)
	assert.Error(t, err)
	_, err = NewHorizon(start, start, 0)
	assert.Error(t, err)
}

func TestParsePlanFilters(t *testing.T) {
	for st := PlanDraft; st <= PlanCancelled; st++ {
		got, err := ParsePlanStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParsePlanStatus("Executed")
	assert.ErrorIs(t, err, ErrValidation)

	typ, err := ParsePlanType("crp")
	require.NoError(t, err)
	assert.Equal(t, CRPPlan, typ)
	_, err = ParsePlanType("NetChange")
	assert.ErrorIs(t, err, ErrValidation)

	for st := OrderSuggested; st <= OrderCancelled; st++ {
		got, err := ParsePlannedOrderStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err = ParsePlannedOrderStatus("Confirmed")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEffectiveHours(t *testing.T) {
	wc := WorkCenter{ID: "W", HoursPerDay: decimal.NewFromInt(10), Efficiency: decimal.NewFromInt(85)}
	assert.True(t, decimal.RequireFromString("8.5").Equal(wc.EffectiveHours(wc.HoursPerDay, true)))
	assert.True(t, decimal.NewFromInt(10).Equal(wc.EffectiveHours(wc.HoursPerDay, false)))

	unset := WorkCenter{ID: "U"}
	assert.True(t, decimal.NewFromInt(7).Equal(unset.EffectiveHours(decimal.NewFromInt(7), true)), "zero efficiency counts as 100%")
	assert.True(t, DefaultCapacityPolicy().IncludeEfficiency)
}
