package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/pushmill/automation-engine/internal/downstream"
)

// SendCall records one invocation of the downstream sender.
type SendCall struct {
	AutomationID string
	Mode         downstream.Mode
	Timeout      time.Duration
}

// FakeDownstream records send calls and returns canned results per mode.
type FakeDownstream struct {
	mu      sync.Mutex
	Calls   []SendCall
	Results map[downstream.Mode]downstream.Result
	Errs    map[downstream.Mode]error
	// Logs are replayed through the onLog callback before resolving.
	Logs []string
}

func NewFakeDownstream() *FakeDownstream {
	return &FakeDownstream{
		Results: make(map[downstream.Mode]downstream.Result),
		Errs:    make(map[downstream.Mode]error),
	}
}

func (f *FakeDownstream) Send(_ context.Context, automationID string, mode downstream.Mode, timeout time.Duration, onLog downstream.LogFunc) (downstream.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, SendCall{AutomationID: automationID, Mode: mode, Timeout: timeout})
	logs := f.Logs
	result, hasResult := f.Results[mode]
	err := f.Errs[mode]
	f.mu.Unlock()

	if onLog != nil {
		for _, msg := range logs {
			onLog("info", "send", msg)
		}
	}
	if err != nil {
		return downstream.Result{}, err
	}
	if !hasResult {
		result = downstream.Result{Success: true, Message: "ok"}
	}
	return result, nil
}

// CallsForMode returns the recorded calls with the given mode.
func (f *FakeDownstream) CallsForMode(mode downstream.Mode) []SendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SendCall, 0, len(f.Calls))
	for _, c := range f.Calls {
		if c.Mode == mode {
			out = append(out, c)
		}
	}
	return out
}
