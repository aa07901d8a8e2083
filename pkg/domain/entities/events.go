package entities

import "time"

// EventName identifies a domain event emitted by a lifecycle transition
type EventName string

const (
	EventPlanCreated   EventName = "PlanCreated"
	EventPlanStarted   EventName = "PlanStarted"
	EventPlanCompleted EventName = "PlanCompleted"
	EventPlanFailed    EventName = "PlanFailed"
	EventPlanApproved  EventName = "PlanApproved"
	EventPlanCancelled EventName = "PlanCancelled"
	EventPlanRedrafted EventName = "PlanRedrafted"

	EventOrderFirmed    EventName = "PlannedOrderFirmed"
	EventOrderReleased  EventName = "PlannedOrderReleased"
	EventOrderConverted EventName = "PlannedOrderConverted"
	EventOrderCancelled EventName = "PlannedOrderCancelled"

	EventExceptionResolved EventName = "ExceptionResolved"
)

// DomainEvent is a fact produced by a pure state transition
type DomainEvent struct {
	Name        EventName
	AggregateID string
	OccurredAt  time.Time
	Payload     map[string]string
}

func newEvent(name EventName, aggregateID string, at time.Time, kv ...string) DomainEvent {
	payload := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		payload[kv[i]] = kv[i+1]
	}
	return DomainEvent{Name: name, AggregateID: aggregateID, OccurredAt: at, Payload: payload}
}
