package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
)

// ExecutionConfig is the per-scheduled-entry execution snapshot. A copy is
// shared between the schedule table, the active execution and control
// handlers, so all access goes through the mutex.
type ExecutionConfig struct {
	mu                   sync.Mutex
	currentPhase         models.Phase
	startTime            time.Time
	expectedEndTime      time.Time
	audienceGenerated    bool
	testsSent            bool
	cancellationDeadline time.Time
	canCancel            bool
	emergencyStop        bool
}

// NewExecutionConfig returns a zeroed execution config.
func NewExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{}
}

// SetPhase records the current phase.
func (c *ExecutionConfig) SetPhase(phase models.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPhase = phase
}

// Phase returns the current phase.
func (c *ExecutionConfig) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPhase
}

// Begin marks the execution window.
func (c *ExecutionConfig) Begin(start, expectedEnd time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = start
	c.expectedEndTime = expectedEnd
}

// MarkAudienceGenerated records phase-1 completion.
func (c *ExecutionConfig) MarkAudienceGenerated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audienceGenerated = true
}

// MarkTestsSent records phase-2 completion.
func (c *ExecutionConfig) MarkTestsSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.testsSent = true
}

// OpenCancellationWindow arms the window deadline.
func (c *ExecutionConfig) OpenCancellationWindow(deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancellationDeadline = deadline
	c.canCancel = true
}

// CloseCancellationWindow disarms cancellation once the window elapses.
func (c *ExecutionConfig) CloseCancellationWindow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canCancel = false
}

// CancellationState returns whether cancellation is possible and its deadline.
func (c *ExecutionConfig) CancellationState() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canCancel, c.cancellationDeadline
}

// RequestEmergencyStop flags the execution for emergency stop; the flag is
// observed at the next cancellation-window poll or phase boundary.
func (c *ExecutionConfig) RequestEmergencyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emergencyStop = true
}

// EmergencyStopRequested reports the emergency-stop flag.
func (c *ExecutionConfig) EmergencyStopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emergencyStop
}

// activeExecution tracks one running timeline.
type activeExecution struct {
	executionID  string
	automationID string
	startTime    time.Time
	config       *ExecutionConfig
	cancel       context.CancelFunc
	done         chan struct{}
}

// activeTable enforces the one-run-per-automation invariant and exposes abort.
// All operations are atomic with respect to each other.
type activeTable struct {
	mu      sync.Mutex
	entries map[string]*activeExecution
}

func newActiveTable() *activeTable {
	return &activeTable{entries: make(map[string]*activeExecution)}
}

// Register inserts an execution; it fails when one is already present.
func (t *activeTable) Register(exec *activeExecution) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[exec.automationID]; ok {
		return ErrExecutionActive
	}
	t.entries[exec.automationID] = exec
	return nil
}

// IsActive reports whether the automation currently has a running execution.
func (t *activeTable) IsActive(automationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[automationID]
	return ok
}

// Get returns the active execution for the automation, if any.
func (t *activeTable) Get(automationID string) *activeExecution {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[automationID]
}

// Status returns execution status info for the automation, or nil.
func (t *activeTable) Status(automationID string) (*models.ExecutionStatusInfo, *models.CancellationInfo) {
	t.mu.Lock()
	exec, ok := t.entries[automationID]
	t.mu.Unlock()
	if !ok {
		return nil, nil
	}

	canCancel, deadline := exec.config.CancellationState()
	status := &models.ExecutionStatusInfo{
		ExecutionID:  exec.executionID,
		CurrentPhase: exec.config.Phase(),
		StartTime:    exec.startTime,
		CanCancel:    canCancel,
	}

	cancellation := &models.CancellationInfo{CanCancel: canCancel}
	if !deadline.IsZero() {
		d := deadline
		cancellation.CancellationDeadline = &d
		if remaining := time.Until(deadline); remaining > 0 {
			cancellation.RemainingSeconds = int64(remaining.Seconds())
		}
	}
	return status, cancellation
}

// Terminate signals the abort handle for the automation's execution and
// returns its done channel. Idempotent: terminating an absent entry returns a
// closed channel.
func (t *activeTable) Terminate(automationID, reason string) <-chan struct{} {
	t.mu.Lock()
	exec, ok := t.entries[automationID]
	t.mu.Unlock()
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}

	exec.cancel()
	return exec.done
}

// Remove drops the entry; called on every terminal outcome.
func (t *activeTable) Remove(automationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, automationID)
}

// Count returns the number of running executions.
func (t *activeTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot lists the running executions for debug output.
func (t *activeTable) Snapshot() []models.ExecutionStatusInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ExecutionStatusInfo, 0, len(t.entries))
	for _, exec := range t.entries {
		canCancel, _ := exec.config.CancellationState()
		out = append(out, models.ExecutionStatusInfo{
			ExecutionID:  exec.executionID,
			CurrentPhase: exec.config.Phase(),
			StartTime:    exec.startTime,
			CanCancel:    canCancel,
		})
	}
	return out
}
