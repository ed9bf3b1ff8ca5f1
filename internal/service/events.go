package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventVolumesLoaded     EventType = "volumes_loaded"
	EventTransformsApplied EventType = "transforms_applied"
	EventMaterialsTagged   EventType = "materials_tagged"
	EventTopologyMerged    EventType = "topology_merged"
	EventReflectorsFound   EventType = "reflectors_found"
	EventExported          EventType = "exported"
	EventRunFinished       EventType = "run_finished"
	EventRunFailed         EventType = "run_failed"
)

// Event represents a stage of a conversion run
type Event struct {
	Type    EventType      `json:"type"`
	RunID   string         `json:"run_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers. A nil bus drops the event.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
