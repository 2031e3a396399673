// Package events delivers turn and deep-path progress events to in-process
// subscribers and, optionally, to a message broker.
package events

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies an event.
type Type string

const (
	TypeTurnStarted   Type = "turn_started"
	TypeTurnCompleted Type = "turn_completed"
	TypeDeepProgress  Type = "deep_progress"
)

// Event is an in-process notification for subscribers such as the TUI.
type Event struct {
	Type        Type      `json:"type"`
	SessionID   string    `json:"session_id"`
	ResponderID string    `json:"responder_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Phase       string    `json:"phase,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	TaskStatus  string    `json:"task_status,omitempty"`
	Completed   int       `json:"completed,omitempty"`
	Total       int       `json:"total,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// sendTimeout is how long Emit waits on a full channel before dropping.
const sendTimeout = 100 * time.Millisecond

// Emitter handles event emission.
// It provides a simple, thread-safe way to emit events to one subscriber.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewEmitter creates a new Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{events: make(chan Event, bufferSize)}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
// Emitting after Close is a no-op.
func (e *Emitter) Emit(event Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a chance to drain.
	select {
	case e.events <- event:
	case <-time.After(sendTimeout):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // every 10th drop
			log.Printf("[events] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Safe to call more than once.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}
