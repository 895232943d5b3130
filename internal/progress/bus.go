package progress

import (
	"sync"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
)

// Event is one live progress notification for an automation's execution.
// The Progress Store remains the source of truth; the bus only serves
// observers connected while the execution runs.
type Event struct {
	Type         string                 `json:"type"` // log | progress | done
	ExecutionID  string                 `json:"executionId"`
	AutomationID string                 `json:"automationId"`
	Status       models.ExecutionStatus `json:"status,omitempty"`
	Phase        models.Phase           `json:"phase,omitempty"`
	Level        models.LogLevel        `json:"level,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Current      int                    `json:"current,omitempty"`
	Total        int                    `json:"total,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

const subscriberBuffer = 64

// Bus fans execution events out to in-process subscribers keyed by
// automation id. Publishing never blocks; a slow subscriber loses events and
// catches up from the Progress Store.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers an observer for one automation. The returned cancel
// function must be called when the observer disconnects.
func (b *Bus) Subscribe(automationID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[automationID] == nil {
		b.subs[automationID] = make(map[chan Event]struct{})
	}
	b.subs[automationID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[automationID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, automationID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to all subscribers of the automation.
func (b *Bus) Publish(automationID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[automationID] {
		select {
		case ch <- ev:
		default:
			// subscriber is behind; it reconciles from the store
		}
	}
}

// SubscriberCount reports active observers for the automation.
func (b *Bus) SubscriberCount(automationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[automationID])
}
