package orchestrator

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/shayc/council/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRunStarted indicates a run was accepted and the pipeline began.
	EventRunStarted EventType = "run_started"
	// EventAgentStatus indicates a council or judge agent changed state.
	EventAgentStatus EventType = "agent_status"
	// EventProgress carries a free-text progress message for display.
	EventProgress EventType = "progress"
	// EventCouncilSettled indicates every council agent reached a terminal
	// state.
	EventCouncilSettled EventType = "council_settled"
	// EventVerdict carries the final verdict. Terminal for the run.
	EventVerdict EventType = "verdict"
	// EventRunFailed indicates the run terminated without a verdict.
	// Terminal for the run.
	EventRunFailed EventType = "run_failed"
)

// Event is one update emitted by the orchestrator for the UI/caller.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run the event belongs to.
	RunID string
	// AgentID is the related agent, if applicable.
	AgentID string
	// AgentName is the related agent's display name, if applicable.
	AgentName string
	// Role is the related agent's role, if applicable.
	Role models.Role
	// Status is the agent's new status for agent_status events.
	Status models.AgentStatus
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Verdict is the final result for verdict events.
	Verdict *models.Verdict
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter handles event emission for the orchestrator.
// It provides a simple, thread-safe way to emit events to a subscriber.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
// This is used by subscribers (e.g., the TUI) to receive updates.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel.
// This should be called when the orchestrator is done.
func (e *EventEmitter) Close() {
	close(e.events)
}
