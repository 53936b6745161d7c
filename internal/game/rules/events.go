package rules

import (
	"sync"
	"time"
)

// EventType names the match events published while an action is applied.
// The first three are also the trigger events card rules listen for.
type EventType string

const (
	// EventOnSummon fires after a character is placed face up.
	EventOnSummon EventType = "onSummon"
	// EventOnPlay fires after a help or sp card is placed face up.
	EventOnPlay EventType = "onPlay"
	// EventSPPhase fires for every face-up sp card during the SP phase.
	EventSPPhase EventType = "spPhase"

	EventCardPlaced       EventType = "CARD_PLACED"
	EventCardSelected     EventType = "CARD_SELECTED"
	EventPhaseChanged     EventType = "PHASE_CHANGED"
	EventTurnChanged      EventType = "TURN_CHANGED"
	EventTurnSkipped      EventType = "TURN_SKIPPED"
	EventBattleConcluded  EventType = "LEADER_BATTLE_CONCLUDED"
	EventLeaderAdvanced   EventType = "LEADER_ADVANCED"
	EventGameEnded        EventType = "GAME_ENDED"
	EventRestrictionBlock EventType = "RESTRICTION_BLOCKED"
)

// IsTrigger reports whether card rules can listen for the event.
func (et EventType) IsTrigger() bool {
	switch et {
	case EventOnSummon, EventOnPlay, EventSPPhase:
		return true
	}
	return false
}

// PlayEventFor returns the event fired when a card of the given type is placed face up.
func PlayEventFor(cardType string) EventType {
	if cardType == "character" {
		return EventOnSummon
	}
	return EventOnPlay
}

// Event is a state change other subsystems may react to.
type Event struct {
	Type      EventType
	MatchID   string
	PlayerID  string
	CardID    string
	Zone      Zone
	Phase     Phase
	Turn      float64
	Amount    int
	Data      string
	Timestamp time.Time
}

// Listener reacts to incoming events.
type Listener func(Event)

// TypedListener reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus is a synchronous publish/subscribe bus with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for one event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by handle, typed or not.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// A nil bus drops the event.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}
