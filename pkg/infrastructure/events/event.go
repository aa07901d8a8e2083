package events

import (
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Event is a domain event as stored in a stream
type Event struct {
	entities.DomainEvent
	Stream   string
	Version  int // 1-based position within the stream
	Position int // 0-based position across all streams
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(name entities.EventName) bool
}

type EventStore interface {
	AppendEvents(streamID string, events ...entities.DomainEvent) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(names []entities.EventName, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// HandlerFunc adapts a function into an EventHandler accepting every event
type HandlerFunc func(Event) error

func (f HandlerFunc) Handle(event Event) error { return f(event) }

func (f HandlerFunc) CanHandle(entities.EventName) bool { return true }
