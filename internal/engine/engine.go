package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pushmill/automation-engine/internal/audience"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/progress"
	"github.com/pushmill/automation-engine/pkg/clock"
	"github.com/pushmill/automation-engine/pkg/config"
	"github.com/pushmill/automation-engine/platform/events"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// terminateWait bounds how long a reschedule waits for the running execution
// to finish aborting.
const terminateWait = 30 * time.Second

// scheduledEntry is one row of the schedule table.
type scheduledEntry struct {
	automationID string
	entryID      cron.EntryID
	spec         string
	automation   models.Automation
	config       *ExecutionConfig
}

// ScheduleResult reports the outcome of a schedule call.
type ScheduleResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ScheduledEntryInfo is the debug view of one schedule-table row.
type ScheduledEntryInfo struct {
	AutomationID string    `json:"automationId"`
	Name         string    `json:"name"`
	CronSpec     string    `json:"cronSpec"`
	NextRun      time.Time `json:"nextRun"`
}

// DebugInfo is the operator-facing snapshot of engine state.
type DebugInfo struct {
	InstanceID             string                       `json:"instanceId"`
	StartedAt              time.Time                    `json:"startedAt"`
	LastRestorationAttempt *time.Time                   `json:"lastRestorationAttempt,omitempty"`
	LastRestorationSuccess bool                         `json:"lastRestorationSuccess"`
	ScheduledCount         int                          `json:"scheduledCount"`
	ActiveCount            int                          `json:"activeCount"`
	Scheduled              []ScheduledEntryInfo         `json:"scheduled"`
	Active                 []models.ExecutionStatusInfo `json:"active"`
}

// Metrics are engine counters since process start.
type Metrics struct {
	Scheduled        int   `json:"scheduled"`
	ActiveExecutions int   `json:"activeExecutions"`
	Completed        int64 `json:"completed"`
	Failed           int64 `json:"failed"`
	Aborted          int64 `json:"aborted"`
}

// Engine owns the schedule table and drives automation executions. Exactly
// one instance exists per process; see Init/Get.
type Engine struct {
	cfg        config.App
	logger     logging.Logger
	clock      clock.Clock
	instanceID string
	startedAt  time.Time

	definitions DefinitionStore
	progress    ProgressStore
	history     HistoryStore
	bus         *progress.Bus
	publisher   LifecyclePublisher
	executor    *Executor

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]*scheduledEntry
	active  *activeTable

	restorationMu          sync.Mutex
	lastRestorationAttempt time.Time
	lastRestorationSuccess bool

	completed atomic.Int64
	failed    atomic.Int64
	aborted   atomic.Int64

	shutdownOnce sync.Once
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Config      config.App
	Logger      logging.Logger
	Clock       clock.Clock
	Definitions DefinitionStore
	Progress    ProgressStore
	History     HistoryStore
	Bus         *progress.Bus
	Publisher   LifecyclePublisher
	Downstream  DownstreamSender
	Registry    GeneratorRegistry
	Subprocess  SubprocessRunner
}

// New constructs an engine and starts its cron runner. Callers outside tests
// should use Init, which enforces the process-singleton discipline.
func New(deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if deps.Bus == nil {
		deps.Bus = progress.NewBus()
	}
	if deps.Registry == nil {
		deps.Registry = audience.NewRegistry()
	}

	e := &Engine{
		cfg:         deps.Config,
		logger:      deps.Logger.With(zap.String("component", "engine")),
		clock:       deps.Clock,
		instanceID:  uuid.New().String(),
		startedAt:   time.Now().UTC(),
		definitions: deps.Definitions,
		progress:    deps.Progress,
		history:     deps.History,
		bus:         deps.Bus,
		publisher:   deps.Publisher,
		cron:        cron.New(),
		entries:     make(map[string]*scheduledEntry),
		active:      newActiveTable(),
	}

	e.executor = NewExecutor(deps.Config, deps.Logger, deps.Clock, deps.Progress, deps.History, deps.Bus, deps.Downstream, deps.Registry, deps.Subprocess)
	e.executor.unschedule = e.Unschedule

	e.cron.Start()
	return e
}

// InstanceID returns this process's unique engine instance id.
func (e *Engine) InstanceID() string { return e.instanceID }

// Bus exposes the live progress bus for stream handlers.
func (e *Engine) Bus() *progress.Bus { return e.bus }

// Progress exposes the progress store for stream handlers catching up late
// observers.
func (e *Engine) Progress() ProgressStore { return e.progress }

// Definitions exposes the definition store for control-status reads.
func (e *Engine) Definitions() DefinitionStore { return e.definitions }

// Schedule installs (or replaces) the cron handle for the automation. A
// running execution for the same automation is terminated first.
func (e *Engine) Schedule(ctx context.Context, a models.Automation) ScheduleResult {
	if e.active.IsActive(a.ID) {
		e.logger.Info("terminating running execution before reschedule", zap.String("automation_id", a.ID))
		e.terminateAndWait(a.ID, "rescheduling")
	}

	if err := validateAutomation(&a); err != nil {
		return ScheduleResult{OK: false, Message: err.Error()}
	}

	spec, err := BuildCronSpec(&a)
	if err != nil {
		return ScheduleResult{OK: false, Message: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.entries[a.ID]; ok {
		e.cron.Remove(existing.entryID)
		delete(e.entries, a.ID)
	}

	snapshot := a
	entryID, err := e.cron.AddFunc(spec, func() {
		e.onTick(snapshot)
	})
	if err != nil {
		return ScheduleResult{OK: false, Message: fmt.Sprintf("failed to register cron handle: %v", err)}
	}

	e.entries[a.ID] = &scheduledEntry{
		automationID: a.ID,
		entryID:      entryID,
		spec:         spec,
		automation:   snapshot,
		config:       NewExecutionConfig(),
	}

	e.logger.Info("automation scheduled",
		zap.String("automation_id", a.ID),
		zap.String("name", a.Name),
		zap.String("cron", spec),
	)
	return ScheduleResult{OK: true, Message: "scheduled"}
}

// onTick fires when the cron handle triggers. A tick that observes a running
// execution skips silently; anything thrown inside a tick is swallowed with a
// loud log so the schedule table stays consistent.
func (e *Engine) onTick(a models.Automation) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in cron tick",
				zap.String("automation_id", a.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if e.active.IsActive(a.ID) {
		return
	}

	if _, err := e.startExecution(a); err != nil {
		e.logger.Error("failed to start scheduled execution",
			zap.String("automation_id", a.ID),
			zap.Error(err),
		)
	}
}

// Unschedule stops and releases the cron handle if present. Idempotent.
func (e *Engine) Unschedule(automationID string) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[automationID]
	if !ok {
		return true, "was not scheduled"
	}

	e.cron.Remove(entry.entryID)
	delete(e.entries, automationID)
	e.logger.Info("automation unscheduled", zap.String("automation_id", automationID))
	return true, "unscheduled"
}

// Cancel unschedules the automation, terminates any running execution, and
// emits a cancellation event noting the reason.
func (e *Engine) Cancel(ctx context.Context, automationID, reason string) error {
	_, msg := e.Unschedule(automationID)

	if e.active.IsActive(automationID) {
		e.terminateAndWait(automationID, reason)
	}

	e.publishEvent(ctx, events.ExecutionEvent{
		AutomationID: automationID,
		InstanceID:   e.instanceID,
		Type:         "cancelled",
		Status:       models.ExecutionStatusAborted,
	})

	e.logger.Info("automation cancelled",
		zap.String("automation_id", automationID),
		zap.String("reason", reason),
		zap.String("schedule", msg),
	)
	return nil
}

// Pause removes the cron handle and marks the definition paused.
func (e *Engine) Pause(ctx context.Context, automationID string) error {
	e.Unschedule(automationID)
	if err := e.definitions.UpdateAutomationStatus(ctx, automationID, models.AutomationStatusPaused); err != nil {
		return fmt.Errorf("pause automation: %w", err)
	}
	return nil
}

// Resume marks the definition active and reinstalls its cron handle.
func (e *Engine) Resume(ctx context.Context, automationID string) error {
	a, err := e.definitions.GetAutomation(ctx, automationID)
	if err != nil {
		return err
	}

	if err := e.definitions.UpdateAutomationStatus(ctx, automationID, models.AutomationStatusActive); err != nil {
		return fmt.Errorf("resume automation: %w", err)
	}

	a.Status = models.AutomationStatusActive
	a.IsActive = true
	if result := e.Schedule(ctx, *a); !result.OK {
		return fmt.Errorf("resume automation: %s", result.Message)
	}
	return nil
}

// ExecuteNow starts an execution immediately, outside the cron schedule.
func (e *Engine) ExecuteNow(ctx context.Context, automationID string) (string, error) {
	a, err := e.definitions.GetAutomation(ctx, automationID)
	if err != nil {
		return "", err
	}

	if e.active.IsActive(automationID) {
		return "", ErrExecutionActive
	}
	return e.startExecution(*a)
}

// EmergencyStop flags the running execution for emergency stop. The flag is
// observed at the next cancellation-window poll or phase boundary.
func (e *Engine) EmergencyStop(automationID string) error {
	exec := e.active.Get(automationID)
	if exec == nil {
		return ErrNoActiveExecution
	}

	exec.config.RequestEmergencyStop()
	e.logger.Warn("emergency stop requested",
		zap.String("automation_id", automationID),
		zap.String("execution_id", exec.executionID),
	)
	return nil
}

// Status returns execution status for the automation, or nils when idle.
func (e *Engine) Status(automationID string) (*models.ExecutionStatusInfo, *models.CancellationInfo) {
	return e.active.Status(automationID)
}

// IsScheduled reports whether the automation has a cron handle installed.
func (e *Engine) IsScheduled(automationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entries[automationID]
	return ok
}

// IsExecuting reports whether the automation has a running execution.
func (e *Engine) IsExecuting(automationID string) bool {
	return e.active.IsActive(automationID)
}

// SendLivePush is deprecated: live sending flows exclusively through the
// downstream SSE API.
func (e *Engine) SendLivePush(string) error {
	return fmt.Errorf("SendLivePush is no longer supported; live sends flow through the push-send SSE endpoint")
}

// startExecution allocates an execution id, registers the active entry and
// launches the timeline.
func (e *Engine) startExecution(a models.Automation) (string, error) {
	executionID := uuid.New().String()
	start := e.clock.Now()

	cfg := NewExecutionConfig()
	cfg.Begin(start, start.Add(time.Duration(a.LeadTimeMinutes()+a.CancellationWindowMinutes())*time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	exec := &activeExecution{
		executionID:  executionID,
		automationID: a.ID,
		startTime:    start,
		config:       cfg,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	if err := e.active.Register(exec); err != nil {
		cancel()
		return "", err
	}

	run := &execution{
		id:         executionID,
		automation: a,
		config:     cfg,
		startTime:  start,
	}

	go e.runExecution(ctx, exec, run)

	e.logger.Info("execution started",
		zap.String("automation_id", a.ID),
		zap.String("execution_id", executionID),
	)
	return executionID, nil
}

// runExecution drives one execution to a terminal outcome and finalizes all
// bookkeeping. The active-table entry is removed on every path.
func (e *Engine) runExecution(ctx context.Context, exec *activeExecution, run *execution) {
	defer close(exec.done)
	defer e.active.Remove(exec.automationID)

	bookCtx, cancelBook := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelBook()

	a := &run.automation
	if err := e.progress.StartExecution(bookCtx, run.id, a.ID, a.Name, e.instanceID); err != nil {
		e.logger.Error("failed to create progress record", zap.String("execution_id", run.id), zap.Error(err))
	}

	historyID, err := e.history.TrackExecutionStart(bookCtx, a.ID, a.Name, e.instanceID)
	if err != nil {
		e.logger.Error("failed to create history record", zap.String("execution_id", run.id), zap.Error(err))
	}
	run.historyID = historyID

	e.publishEvent(ctx, events.ExecutionEvent{
		ExecutionID:  run.id,
		AutomationID: a.ID,
		InstanceID:   e.instanceID,
		Type:         "started",
		Status:       models.ExecutionStatusRunning,
	})

	result := e.executor.Run(ctx, run, e.definitions)

	e.finalize(run, result)
}

// finalize records the terminal outcome durably and notifies observers.
func (e *Engine) finalize(run *execution, result outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := &run.automation
	finalPhase := run.config.Phase()

	if err := e.progress.CompleteExecution(ctx, run.id, result.status, finalPhase, result.message); err != nil {
		e.logger.Error("failed to finalize progress record", zap.String("execution_id", run.id), zap.Error(err))
	}

	if run.historyID != 0 {
		errorMessage := ""
		if result.status == models.ExecutionStatusFailed || result.status == models.ExecutionStatusAborted {
			errorMessage = result.message
		}
		if err := e.history.TrackExecutionComplete(ctx, run.historyID, result.status, run.metrics, run.startTime, errorMessage, ""); err != nil {
			e.logger.Error("failed to finalize history record", zap.Int64("record_id", run.historyID), zap.Error(err))
		}
	}

	e.bus.Publish(a.ID, progress.Event{
		Type:         "done",
		ExecutionID:  run.id,
		AutomationID: a.ID,
		Status:       result.status,
		Phase:        finalPhase,
		Message:      result.message,
	})

	e.publishEvent(ctx, events.ExecutionEvent{
		ExecutionID:  run.id,
		AutomationID: a.ID,
		InstanceID:   e.instanceID,
		Type:         "completed",
		Status:       result.status,
		Phase:        finalPhase,
	})

	switch result.status {
	case models.ExecutionStatusCompleted:
		e.completed.Add(1)
	case models.ExecutionStatusAborted:
		e.aborted.Add(1)
	default:
		e.failed.Add(1)
	}

	e.logger.Info("execution finished",
		zap.String("automation_id", a.ID),
		zap.String("execution_id", run.id),
		zap.String("status", string(result.status)),
		zap.String("message", result.message),
	)
}

// terminateAndWait signals the running execution's abort handle and blocks
// until it finishes or the wait bound elapses.
func (e *Engine) terminateAndWait(automationID, reason string) {
	e.logger.Info("terminating execution",
		zap.String("automation_id", automationID),
		zap.String("reason", reason),
	)

	done := e.active.Terminate(automationID, reason)
	select {
	case <-done:
	case <-time.After(terminateWait):
		e.logger.Warn("timed out waiting for execution to abort", zap.String("automation_id", automationID))
	}
}

// RestoreSchedules reloads active automations from the definition store on
// process start. Failures leave the engine running in degraded mode.
func (e *Engine) RestoreSchedules(ctx context.Context) {
	started := time.Now()

	e.restorationMu.Lock()
	e.lastRestorationAttempt = started.UTC()
	e.restorationMu.Unlock()

	e.logger.Info("==========================================================")
	e.logger.Info("automation engine restoring schedules",
		zap.String("instance_id", e.instanceID),
		zap.Time("started_at", started.UTC()),
	)
	e.logger.Info("==========================================================")

	automations, skipped, err := e.definitions.ListAutomations(ctx)
	if err != nil {
		e.logger.Error("==========================================================")
		e.logger.Error("SCHEDULE RESTORATION FAILED, engine running with empty schedule table",
			zap.Error(err),
		)
		e.logger.Error("==========================================================")
		e.setRestorationSuccess(false)
		return
	}

	for _, id := range skipped {
		e.logger.Warn("skipping automation with invalid definition", zap.String("automation_id", id))
	}

	restored := make([]string, 0, len(automations))
	for i := range automations {
		a := automations[i]
		if !a.IsActive {
			continue
		}
		if a.Status != models.AutomationStatusActive && a.Status != models.AutomationStatusScheduled {
			continue
		}

		result := e.Schedule(ctx, a)
		if !result.OK {
			e.logger.Warn("failed to restore automation",
				zap.String("automation_id", a.ID),
				zap.String("message", result.Message),
			)
			continue
		}
		restored = append(restored, truncateID(a.ID))
	}

	e.setRestorationSuccess(true)

	e.logger.Info("==========================================================")
	e.logger.Info("schedule restoration complete",
		zap.Int("restored", len(restored)),
		zap.Strings("automation_ids", restored),
		zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
	)
	e.logger.Info("==========================================================")
}

func (e *Engine) setRestorationSuccess(ok bool) {
	e.restorationMu.Lock()
	defer e.restorationMu.Unlock()
	e.lastRestorationSuccess = ok
}

// Shutdown stops the cron runner and releases every schedule-table entry.
// Idempotent under repeated signal delivery.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.logger.Info("engine shutting down, releasing cron handles")

		stopCtx := e.cron.Stop()

		e.mu.Lock()
		for id, entry := range e.entries {
			e.cron.Remove(entry.entryID)
			delete(e.entries, id)
		}
		e.mu.Unlock()

		// wait for in-flight cron callbacks to return
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
		}

		e.logger.Info("engine shutdown complete", zap.String("instance_id", e.instanceID))
	})
}

// RescheduleAll re-reads the definition of every scheduled automation and
// reinstalls its cron handle, picking up edited send times and settings.
// Automations deactivated since scheduling are removed. Returns the number of
// handles reinstalled and the first error encountered.
func (e *Engine) RescheduleAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	ids := make([]string, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)

	var firstErr error
	rescheduled := 0
	for _, id := range ids {
		a, err := e.definitions.GetAutomation(ctx, id)
		if err != nil {
			e.logger.Warn("reschedule skipped, definition unavailable",
				zap.String("automation_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !a.IsActive || (a.Status != models.AutomationStatusActive && a.Status != models.AutomationStatusScheduled) {
			e.Unschedule(id)
			continue
		}
		if result := e.Schedule(ctx, *a); result.OK {
			rescheduled++
		} else if firstErr == nil {
			firstErr = errors.New(result.Message)
		}
	}

	e.logger.Info("reschedule pass complete",
		zap.Int("rescheduled", rescheduled),
		zap.Int("considered", len(ids)))
	return rescheduled, firstErr
}

// ScheduledCount returns the number of installed cron handles.
func (e *Engine) ScheduledCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// ListScheduled returns the debug view of the schedule table.
func (e *Engine) ListScheduled() []ScheduledEntryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ScheduledEntryInfo, 0, len(e.entries))
	for _, entry := range e.entries {
		out = append(out, ScheduledEntryInfo{
			AutomationID: entry.automationID,
			Name:         entry.automation.Name,
			CronSpec:     entry.spec,
			NextRun:      e.cron.Entry(entry.entryID).Next,
		})
	}
	return out
}

// DebugInfo returns the operator-facing snapshot of engine state.
func (e *Engine) DebugInfo() DebugInfo {
	e.restorationMu.Lock()
	var attempt *time.Time
	if !e.lastRestorationAttempt.IsZero() {
		t := e.lastRestorationAttempt
		attempt = &t
	}
	success := e.lastRestorationSuccess
	e.restorationMu.Unlock()

	scheduled := e.ListScheduled()
	active := e.active.Snapshot()

	return DebugInfo{
		InstanceID:             e.instanceID,
		StartedAt:              e.startedAt,
		LastRestorationAttempt: attempt,
		LastRestorationSuccess: success,
		ScheduledCount:         len(scheduled),
		ActiveCount:            len(active),
		Scheduled:              scheduled,
		Active:                 active,
	}
}

// Metrics returns engine counters since process start.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		Scheduled:        e.ScheduledCount(),
		ActiveExecutions: e.active.Count(),
		Completed:        e.completed.Load(),
		Failed:           e.failed.Load(),
		Aborted:          e.aborted.Load(),
	}
}

// publishEvent emits a lifecycle event; failures are logged, never fatal.
func (e *Engine) publishEvent(ctx context.Context, ev events.ExecutionEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("lifecycle event publish failed",
			zap.String("automation_id", ev.AutomationID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
	}
}

// validateAutomation checks the fields scheduling depends on.
func validateAutomation(a *models.Automation) error {
	if strings.TrimSpace(a.ID) == "" {
		return NewValidationError("automation id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("automation name is required")
	}
	if len(a.PushSequence) == 0 {
		return NewValidationError("pushSequence must not be empty")
	}
	if a.Schedule.Frequency != models.FrequencyCustom {
		if _, _, err := parseExecutionTime(a.Schedule.ExecutionTime); err != nil {
			return err
		}
	}
	return nil
}

// truncateID shortens ids for banner output.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
