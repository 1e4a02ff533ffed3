// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Session and flight event types
const (
	FlightStarted   Type = "flight_started"
	FlightDestroyed Type = "flight_destroyed"
	StageActivated  Type = "stage_activated"
	StageSeparated  Type = "stage_separated"
	TurnAdvanced    Type = "turn_advanced"
	ScreenChanged   Type = "screen_changed"
	PartUnlocked    Type = "part_unlocked"
	PilotJoined     Type = "pilot_joined"
	PilotLeft       Type = "pilot_left"
	SessionStarted  Type = "session_started"
	SessionEnded    Type = "session_ended"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.handlers[event.GetType()]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// FlightEvent carries a telemetry sample of a flight.
type FlightEvent struct {
	BaseEvent
	FlightID  uint64
	Design    string
	Time      float64
	Altitude  float64
	Speed     float64
	Fuel      float64
	Control   float64
	Rotation  float64
	Destroyed bool
}

// NewFlightEvent creates a new flight event
func NewFlightEvent(eventType Type, source interface{}, flightID uint64) *FlightEvent {
	return &FlightEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		FlightID: flightID,
	}
}

// StageEvent reports a part being staged or dropped.
type StageEvent struct {
	BaseEvent
	FlightID uint64
	Index    int
	Part     string
}

// NewStageEvent creates a new stage event
func NewStageEvent(eventType Type, source interface{}, flightID uint64, index int, part string) *StageEvent {
	return &StageEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		FlightID: flightID,
		Index:    index,
		Part:     part,
	}
}

// ScreenEvent contains the screens of a navigation change
type ScreenEvent struct {
	BaseEvent
	From string
	To   string
}

// NewScreenEvent creates a new screen event
func NewScreenEvent(source interface{}, from, to string) *ScreenEvent {
	return &ScreenEvent{
		BaseEvent: BaseEvent{
			EventType: ScreenChanged,
			Source:    source,
		},
		From: from,
		To:   to,
	}
}

// PartEvent reports a research unlock.
type PartEvent struct {
	BaseEvent
	Part string
	Cost int
}

// NewPartEvent creates a new part event
func NewPartEvent(source interface{}, part string, cost int) *PartEvent {
	return &PartEvent{
		BaseEvent: BaseEvent{
			EventType: PartUnlocked,
			Source:    source,
		},
		Part: part,
		Cost: cost,
	}
}

// PilotEvent reports a pilot joining or leaving a server.
type PilotEvent struct {
	BaseEvent
	PilotID uint64
	Name    string
}

// NewPilotEvent creates a new pilot event
func NewPilotEvent(eventType Type, source interface{}, pilotID uint64, name string) *PilotEvent {
	return &PilotEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		PilotID: pilotID,
		Name:    name,
	}
}
