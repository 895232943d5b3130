package fakes

import (
	"context"
	"errors"
	"sync"

	platformEvents "github.com/pushmill/automation-engine/platform/events"
)

// FakePublisher captures published lifecycle events and can simulate failures.
type FakePublisher struct {
	mu        sync.Mutex
	Events    []platformEvents.ExecutionEvent
	FailNext  bool
	FailError error
}

func (p *FakePublisher) Publish(_ context.Context, e platformEvents.ExecutionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailNext {
		p.FailNext = false
		if p.FailError == nil {
			p.FailError = errors.New("publish failed")
		}
		return p.FailError
	}
	p.Events = append(p.Events, e)
	return nil
}

// EventsOfType returns captured events with the given type.
func (p *FakePublisher) EventsOfType(eventType string) []platformEvents.ExecutionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]platformEvents.ExecutionEvent, 0, len(p.Events))
	for _, e := range p.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
