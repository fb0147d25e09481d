// Package events provides the typed event bus the device backend, the
// backend router, and the transfer queue publish their observable state on.
// The presentation layer owns the subscriptions and decides its own update
// cadence; publishers never block on a slow consumer.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Device backend events
	EventDeviceListChanged  EventType = "device_list_changed"  // Scan finished, device list replaced
	EventDeviceConnected    EventType = "device_connected"     // Session opened
	EventDeviceDisconnected EventType = "device_disconnected"  // Session released
	EventDeviceError        EventType = "device_error"         // Scan or connect failure

	// Listing events (published by the backend router)
	EventListingChanged EventType = "listing_changed" // New listing applied
	EventListingError   EventType = "listing_error"   // Listing failed (empty list + message)

	// Transfer queue events
	EventTransferQueued    EventType = "transfer_queued"    // Operation added to queue
	EventTransferStarted   EventType = "transfer_started"   // Operation moved to InProgress
	EventTransferProgress  EventType = "transfer_progress"  // Progress update
	EventTransferCompleted EventType = "transfer_completed" // Successfully completed
	EventTransferFailed    EventType = "transfer_failed"    // Failed with error
	EventTransferCancelled EventType = "transfer_cancelled" // Removed while still pending
)

const (
	// DefaultBuffer is the per-subscriber channel buffer.
	DefaultBuffer = 1000
	// MaxBuffer caps subscriber buffers for high-rate progress streams.
	MaxBuffer = 5000
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// Base builds a BaseEvent stamped with the current time.
func Base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// DeviceEvent reports device backend state changes: scan results, session
// open/close, and connection failures.
type DeviceEvent struct {
	BaseEvent
	DeviceID string
	Name     string // friendly name, when known
	Count    int    // device count for list-changed events
	Error    error
}

// ListingEvent reports a completed or failed directory/node listing.
// Generation ties the result to the navigation request that produced it;
// consumers discard events older than their current generation.
type ListingEvent struct {
	BaseEvent
	Generation uint64
	Location   string // rendered locator
	Count      int
	Error      error
}

// TransferEvent reports transfer operation lifecycle changes.
type TransferEvent struct {
	BaseEvent
	OperationID string
	Kind        string // "copy" or "move"
	Name        string // display name (filename)
	Progress    float64
	Error       error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of events dropped due to full buffers
}

// NewEventBus creates a new event bus with the specified buffer size.
// Pass 0 for the default.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBuffer
	}
	if bufferSize > MaxBuffer {
		bufferSize = MaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Unsubscribe removes a subscription channel from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subs := eb.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish sends an event to all subscribers without blocking. Events for
// subscribers with full buffers are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// DroppedEvents returns the number of events dropped due to full buffers.
func (eb *EventBus) DroppedEvents() int64 {
	return eb.droppedEvents.Load()
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}
