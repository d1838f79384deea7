// Package events provides the typed event bus used to notify observers of
// transfer and listing state changes without polling.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/baulhq/baul/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Transfer queue events
	EventTransferQueued    EventType = "transfer_queued"    // Record added to queue
	EventTransferStarted   EventType = "transfer_started"   // Gateway call began
	EventTransferProgress  EventType = "transfer_progress"  // Progress update
	EventTransferCompleted EventType = "transfer_completed" // Successfully completed
	EventTransferFailed    EventType = "transfer_failed"    // Failed with error
	EventTransferCancelled EventType = "transfer_cancelled" // Cancelled by user
	EventTransferRemoved   EventType = "transfer_removed"   // Record dismissed/cleared

	// Listing events
	EventBucketMutated      EventType = "bucket_mutated"      // Objects changed under a (connection, bucket)
	EventListingInvalidated EventType = "listing_invalidated" // Cached listing scopes discarded
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

// TransferEvent represents transfer queue state changes
type TransferEvent struct {
	BaseEvent
	RecordID     string  // Unique record ID
	RecordType   string  // "upload" or "download"
	ConnectionID string  // Connection the transfer targets
	Bucket       string  // Target bucket
	Key          string  // Object key
	Name         string  // Display name (filename)
	Progress     float64 // 0 to 100
	Bytes        int64   // Bytes transferred so far
	TotalBytes   int64   // Total bytes (0 if unknown)
	Error        string  // Error message if failed
}

// BucketMutatedEvent is published after an operation that changed the set of
// objects under a (connection, bucket) pair: upload, delete, rename, folder
// creation. The invalidation bridge reacts by discarding cached listings.
type BucketMutatedEvent struct {
	BaseEvent
	ConnectionID string
	Bucket       string
}

// ListingInvalidatedEvent is published when cached listing scopes for a
// (connection, bucket) pair were discarded.
type ListingInvalidatedEvent struct {
	BaseEvent
	ConnectionID string
	Bucket       string
	Scopes       int // Number of scopes discarded
}

// Bus manages event subscriptions and publishing.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event, and a dropped-event counter is kept for diagnostics.
type Bus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewBus creates a new event bus with the specified per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}

	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
// Call this when an observer goes away to avoid leaking channels.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			b.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from every event type and
// from the all-events list.
func (b *Bus) UnsubscribeAll(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for eventType, subscribers := range b.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				b.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range b.all {
		if subCh == ch {
			b.all[i] = b.all[len(b.all)-1]
			b.all = b.all[:len(b.all)-1]
			break
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// PublishBucketMutated is a convenience method for publishing a mutation event
func (b *Bus) PublishBucketMutated(connectionID, bucket string) {
	b.Publish(&BucketMutatedEvent{
		BaseEvent: BaseEvent{
			EventType: EventBucketMutated,
			Time:      time.Now(),
		},
		ConnectionID: connectionID,
		Bucket:       bucket,
	})
}

// DroppedEventCount returns the total number of events dropped due to full buffers
func (b *Bus) DroppedEventCount() int64 {
	return b.droppedEvents.Load()
}
