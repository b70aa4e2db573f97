// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"led-service/internal/model"
)

// EventBus fans LED events out to subscribers.
// Slow subscribers miss events rather than block the publisher.
type EventBus struct {
	subscribers map[chan *model.LedEvent]map[model.EventType]bool
	events      chan *model.LedEvent
	closed      bool
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[chan *model.LedEvent]map[model.EventType]bool),
		events:      make(chan *model.LedEvent, 1000),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Stop closes the bus and every subscriber channel
func (eb *EventBus) Stop() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.events)
	for ch := range eb.subscribers {
		close(ch)
		delete(eb.subscribers, ch)
	}
}

// Publish queues an event for distribution
func (eb *EventBus) Publish(event *model.LedEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	if eb.closed {
		return
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
			zap.String("board", event.Board),
		)
	}
}

// Subscribe returns a channel receiving events of the given types, or all events when none are given
func (eb *EventBus) Subscribe(eventTypes ...model.EventType) <-chan *model.LedEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan *model.LedEvent, 100)
	if eb.closed {
		close(subscriber)
		return subscriber
	}

	filter := make(map[model.EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		filter[t] = true
	}
	eb.subscribers[subscriber] = filter
	return subscriber
}

// Unsubscribe removes and closes a subscriber channel
func (eb *EventBus) Unsubscribe(subscriber <-chan *model.LedEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for ch := range eb.subscribers {
		if ch == subscriber {
			delete(eb.subscribers, ch)
			close(ch)
			return
		}
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event *model.LedEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for subscriber, filter := range eb.subscribers {
		if len(filter) > 0 && !filter[event.EventType] {
			continue
		}
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
