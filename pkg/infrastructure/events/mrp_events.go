package events

import (
	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// PlanEvents lists every plan lifecycle event
var PlanEvents = []entities.EventName{
	entities.EventPlanCreated,
	entities.EventPlanStarted,
	entities.EventPlanCompleted,
	entities.EventPlanFailed,
	entities.EventPlanApproved,
	entities.EventPlanCancelled,
	entities.EventPlanRedrafted,
}

// OrderEvents lists every planned order transition event
var OrderEvents = []entities.EventName{
	entities.EventOrderFirmed,
	entities.EventOrderReleased,
	entities.EventOrderConverted,
	entities.EventOrderCancelled,
}

// AllEvents lists every event name the planning engine emits
func AllEvents() []entities.EventName {
	all := append([]entities.EventName(nil), PlanEvents...)
	all = append(all, OrderEvents...)
	return append(all, entities.EventExceptionResolved)
}

// PlanStream is the stream holding every event of one plan, including
// those of its orders and exceptions
func PlanStream(planID entities.PlanID) string {
	return "plan-" + string(planID)
}

// LogHandler writes each event to a structured logger
type LogHandler struct {
	Logger *zap.Logger
}

func (h LogHandler) CanHandle(entities.EventName) bool { return true }

func (h LogHandler) Handle(event Event) error {
	fields := []zap.Field{
		zap.String("stream", event.Stream),
		zap.Int("version", event.Version),
		zap.String("aggregate", event.AggregateID),
		zap.Time("at", event.OccurredAt),
	}
	for k, v := range event.Payload {
		fields = append(fields, zap.String(k, v))
	}
	h.Logger.Info(string(event.Name), fields...)
	return nil
}
