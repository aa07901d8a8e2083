package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[entities.EventName][]EventHandler
	mutex       sync.RWMutex
	allEvents   []Event
	logger      *zap.Logger
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[entities.EventName][]EventHandler),
		allEvents:   make([]Event, 0),
		logger:      logger,
	}
}

// AppendEvents stores the events in order and then notifies subscribers
// synchronously, outside the store lock
func (s *InMemoryEventStore) AppendEvents(streamID string, events ...entities.DomainEvent) error {
	s.mutex.Lock()
	stored := make([]Event, 0, len(events))
	for _, e := range events {
		ev := Event{
			DomainEvent: e,
			Stream:      streamID,
			Version:     len(s.streams[streamID]) + 1,
			Position:    len(s.allEvents),
		}
		s.streams[streamID] = append(s.streams[streamID], ev)
		s.allEvents = append(s.allEvents, ev)
		stored = append(stored, ev)
	}
	s.mutex.Unlock()

	for _, ev := range stored {
		s.notifySubscribers(ev)
	}
	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	if fromVersion < 1 {
		fromVersion = 1
	}

	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}

	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(names []entities.EventName, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, name := range names {
		s.subscribers[name] = append(s.subscribers[name], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for name, handlers := range s.subscribers {
		kept := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		s.subscribers[name] = kept
	}

	return nil
}

// notifySubscribers runs handlers in subscription order; handler errors are logged, not returned
func (s *InMemoryEventStore) notifySubscribers(event Event) {
	s.mutex.RLock()
	handlers := append([]EventHandler(nil), s.subscribers[event.Name]...)
	s.mutex.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.Name) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("event", string(event.Name)),
				zap.String("stream", event.Stream),
				zap.Error(err))
		}
	}
}
