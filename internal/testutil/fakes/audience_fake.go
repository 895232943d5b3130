package fakes

import (
	"context"
	"sync"

	"github.com/pushmill/automation-engine/internal/audience"
)

// FakeGenerator is a canned in-process audience generator.
type FakeGenerator struct {
	mu       sync.Mutex
	Requests []audience.Request
	Result   audience.GenerationResult
	Err      error
}

func (g *FakeGenerator) Generate(_ context.Context, req audience.Request) (audience.GenerationResult, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	g.mu.Unlock()
	if g.Err != nil {
		return audience.GenerationResult{}, g.Err
	}
	return g.Result, nil
}

// SubprocessCall records one invocation of the subprocess runner.
type SubprocessCall struct {
	ScriptID    string
	Args        []string
	ExecutionID string
	DryRun      bool
}

// FakeSubprocessRunner records script invocations and returns canned results.
type FakeSubprocessRunner struct {
	mu     sync.Mutex
	Calls  []SubprocessCall
	Result audience.ScriptResult
	Err    error
}

func (f *FakeSubprocessRunner) ExecuteScript(_ context.Context, scriptID string, args []string, executionID string, dryRun bool) (audience.ScriptResult, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, SubprocessCall{ScriptID: scriptID, Args: args, ExecutionID: executionID, DryRun: dryRun})
	f.mu.Unlock()
	if f.Err != nil {
		return f.Result, f.Err
	}
	if !f.Result.Success && f.Result.Stdout == "" && f.Result.Stderr == "" {
		return audience.ScriptResult{Success: true, Stdout: "done"}, nil
	}
	return f.Result, nil
}
