package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

func event(name entities.EventName, id string) entities.DomainEvent {
	return entities.DomainEvent{Name: name, AggregateID: id, OccurredAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func TestAppendAndReadEvents(t *testing.T) {
	store := NewInMemoryEventStore(zaptest.NewLogger(t))

	require.NoError(t, store.AppendEvents("plan-A", event(entities.EventPlanCreated, "A"), event(entities.EventPlanStarted, "A")))
	require.NoError(t, store.AppendEvents("plan-B", event(entities.EventPlanCreated, "B")))
	require.NoError(t, store.AppendEvents("plan-A", event(entities.EventPlanCompleted, "A")))

	a, err := store.ReadEvents("plan-A", 0)
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{a[0].Version, a[1].Version, a[2].Version})
	assert.Equal(t, entities.EventPlanCompleted, a[2].Name)
	assert.Equal(t, 3, a[2].Position)

	fromTwo, err := store.ReadEvents("plan-A", 2)
	require.NoError(t, err)
	assert.Len(t, fromTwo, 2)

	missing, err := store.ReadEvents("plan-Z", 1)
	require.NoError(t, err)
	assert.Empty(t, missing)

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "plan-A", all[0].Stream)
	assert.Equal(t, "plan-B", all[1].Stream)
}

func TestSubscribersAreNotifiedSynchronously(t *testing.T) {
	store := NewInMemoryEventStore(zaptest.NewLogger(t))
	var seen []entities.EventName
	handler := HandlerFunc(func(e Event) error {
		seen = append(seen, e.Name)
		return nil
	})
	failing := HandlerFunc(func(Event) error { return errors.New("boom") })

	require.NoError(t, store.Subscribe(PlanEvents, handler))
	require.NoError(t, store.Subscribe([]entities.EventName{entities.EventPlanCreated}, failing))

	require.NoError(t, store.AppendEvents("plan-A",
		event(entities.EventPlanCreated, "A"),
		event(entities.EventOrderFirmed, "O1"),
		event(entities.EventPlanStarted, "A")))
	assert.Equal(t, []entities.EventName{entities.EventPlanCreated, entities.EventPlanStarted}, seen)
}

func TestAllEventsCoversEveryName(t *testing.T) {
	assert.Len(t, AllEvents(), len(PlanEvents)+len(OrderEvents)+1)
	assert.Contains(t, AllEvents(), entities.EventExceptionResolved)
}
