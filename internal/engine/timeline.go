package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pushmill/automation-engine/internal/audience"
	"github.com/pushmill/automation-engine/internal/downstream"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/progress"
	"github.com/pushmill/automation-engine/pkg/clock"
	"github.com/pushmill/automation-engine/pkg/config"
	"go.uber.org/zap"
)

// testArtifactPrefix marks automations created by end-to-end validation runs.
const testArtifactPrefix = "TEST SCHEDULED:"

// execution carries the state of one running timeline.
type execution struct {
	id         string
	automation models.Automation
	config     *ExecutionConfig
	historyID  int64
	startTime  time.Time
	metrics    models.ExecutionMetrics
}

// outcome is the terminal result of one execution.
type outcome struct {
	status  models.ExecutionStatus
	message string
}

// Executor drives a single execution through the five-phase timeline. The
// abort context is checked at every phase boundary; mid-phase I/O is not
// interrupted.
type Executor struct {
	cfg          config.App
	logger       logging.Logger
	clock        clock.Clock
	progress     ProgressStore
	history      HistoryStore
	bus          *progress.Bus
	downstream   DownstreamSender
	registry     GeneratorRegistry
	subprocess   SubprocessRunner
	pollInterval time.Duration

	// unschedule is installed by the engine so phase-5 cleanup can remove
	// test artifacts from the schedule table.
	unschedule func(automationID string) (bool, string)
}

// NewExecutor builds a timeline executor.
func NewExecutor(cfg config.App, logger logging.Logger, clk clock.Clock, progressStore ProgressStore, historyStore HistoryStore, bus *progress.Bus, sender DownstreamSender, registry GeneratorRegistry, subprocess SubprocessRunner) *Executor {
	return &Executor{
		cfg:          cfg,
		logger:       logger.With(zap.String("component", "timeline")),
		clock:        clk,
		progress:     progressStore,
		history:      historyStore,
		bus:          bus,
		downstream:   sender,
		registry:     registry,
		subprocess:   subprocess,
		pollInterval: 30 * time.Second,
	}
}

// Run executes the full timeline and returns the terminal outcome. The
// definitions store is passed in for phase-5 cleanup only.
func (x *Executor) Run(ctx context.Context, exec *execution, definitions DefinitionStore) outcome {
	a := &exec.automation

	type phaseFunc func(context.Context, *execution) error
	phases := []struct {
		phase models.Phase
		run   phaseFunc
	}{
		{models.PhaseAudienceGeneration, x.runAudienceGeneration},
		{models.PhaseTestSending, x.runTestSending},
		{models.PhaseCancellationWindow, x.runCancellationWindow},
		{models.PhaseLiveExecution, x.runLiveExecution},
		{models.PhaseCleanup, func(ctx context.Context, e *execution) error {
			return x.runCleanup(ctx, e, definitions)
		}},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			x.appendLog(exec, models.LogLevelWarn, p.phase, "execution aborted before phase start")
			return outcome{status: models.ExecutionStatusAborted, message: "execution aborted"}
		}
		if exec.config.EmergencyStopRequested() {
			x.appendLog(exec, models.LogLevelError, p.phase, "Emergency stop requested")
			return outcome{status: models.ExecutionStatusFailed, message: "Emergency stop requested"}
		}

		x.enterPhase(ctx, exec, p.phase)
		x.appendLog(exec, models.LogLevelInfo, p.phase, fmt.Sprintf("phase started: %s", p.phase))

		if err := p.run(ctx, exec); err != nil {
			if ctx.Err() != nil {
				x.appendLog(exec, models.LogLevelWarn, p.phase, "execution aborted")
				return outcome{status: models.ExecutionStatusAborted, message: "execution aborted"}
			}
			x.appendLog(exec, models.LogLevelError, p.phase, err.Error())
			return outcome{status: models.ExecutionStatusFailed, message: err.Error()}
		}

		x.appendLog(exec, models.LogLevelSuccess, p.phase, fmt.Sprintf("phase completed: %s", p.phase))
		x.logger.Info("phase completed",
			zap.String("automation_id", a.ID),
			zap.String("execution_id", exec.id),
			zap.String("phase", string(p.phase)),
		)
	}

	return outcome{status: models.ExecutionStatusCompleted, message: "all phases completed"}
}

// enterPhase records the transition in the active entry, the progress store
// and the history store, and notifies live observers. Bookkeeping failures
// are logged and never abort the execution.
func (x *Executor) enterPhase(ctx context.Context, exec *execution, phase models.Phase) {
	exec.config.SetPhase(phase)

	if err := x.progress.UpdateProgress(ctx, exec.id, models.ExecutionStatusRunning, phase, "", 0, 0); err != nil {
		x.logger.Warn("progress update failed", zap.String("execution_id", exec.id), zap.Error(err))
	}
	if exec.historyID != 0 {
		if err := x.history.TrackExecutionPhase(ctx, exec.historyID, phase); err != nil {
			x.logger.Warn("history phase update failed", zap.Int64("record_id", exec.historyID), zap.Error(err))
		}
	}

	x.bus.Publish(exec.automation.ID, progress.Event{
		Type:         "progress",
		ExecutionID:  exec.id,
		AutomationID: exec.automation.ID,
		Status:       models.ExecutionStatusRunning,
		Phase:        phase,
	})
}

// appendLog writes an execution log entry to the progress store and fans it
// out to live observers. Append failures are logged, never fatal.
func (x *Executor) appendLog(exec *execution, level models.LogLevel, phase models.Phase, message string) {
	// bookkeeping writes survive an aborted execution context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := x.progress.AppendLog(ctx, exec.id, exec.automation.ID, level, phase, message); err != nil {
		x.logger.Warn("append log failed", zap.String("execution_id", exec.id), zap.Error(err))
	}

	x.bus.Publish(exec.automation.ID, progress.Event{
		Type:         "log",
		ExecutionID:  exec.id,
		AutomationID: exec.automation.ID,
		Level:        level,
		Phase:        phase,
		Message:      message,
	})
}

// runAudienceGeneration produces the audience for every push in the sequence.
// The in-process generator is preferred when the engine runs v2 and the script
// is registered; otherwise the legacy subprocess executor handles it.
func (x *Executor) runAudienceGeneration(ctx context.Context, exec *execution) error {
	a := &exec.automation
	total := len(a.PushSequence)
	scriptID := a.ScriptID()

	for i, push := range a.PushSequence {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := x.generateForPush(ctx, exec, scriptID, push); err != nil {
			return err
		}

		if err := x.progress.UpdateProgress(ctx, exec.id, models.ExecutionStatusRunning, models.PhaseAudienceGeneration,
			fmt.Sprintf("audience generated for push %d/%d", i+1, total), i+1, total); err != nil {
			x.logger.Warn("progress update failed", zap.String("execution_id", exec.id), zap.Error(err))
		}
		x.bus.Publish(a.ID, progress.Event{
			Type:         "progress",
			ExecutionID:  exec.id,
			AutomationID: a.ID,
			Status:       models.ExecutionStatusRunning,
			Phase:        models.PhaseAudienceGeneration,
			Current:      i + 1,
			Total:        total,
		})
	}

	exec.config.MarkAudienceGenerated()
	return nil
}

// generateForPush runs one audience generation with the configured backend.
func (x *Executor) generateForPush(ctx context.Context, exec *execution, scriptID string, push models.AutomationPush) error {
	a := &exec.automation

	if x.cfg.EngineVersion == "v2" && scriptID != "" && x.registry.Has(scriptID) {
		req := audience.Request{
			AutomationID: a.ID,
			DryRun:       a.AudienceCriteria.TestMode,
			OutputDir:    fmt.Sprintf("audiences/%s/%s", a.ID, exec.id),
		}
		if cs := a.AudienceCriteria.CustomScript; cs != nil {
			req.LookbackHours = cs.LookbackHours
			req.CoolingHours = cs.CoolingHours
		}

		result, err := x.registry.Get(scriptID).Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("audience generation failed for push %s: %w", push.ID, err)
		}
		if !result.Success {
			return fmt.Errorf("audience generation failed for push %s: generator reported failure", push.ID)
		}
		exec.metrics.AudienceSize += result.AudienceSize
		return nil
	}

	var args []string
	if cs := a.AudienceCriteria.CustomScript; cs != nil {
		args = append(args,
			fmt.Sprintf("--lookback-hours=%d", cs.LookbackHours),
			fmt.Sprintf("--cooling-hours=%d", cs.CoolingHours),
		)
	}
	args = append(args, "--automation-id="+a.ID)

	result, err := x.subprocess.ExecuteScript(ctx, scriptID, args, exec.id, a.AudienceCriteria.TestMode)
	if err != nil || !result.Success {
		msg := fmt.Sprintf("audience generation failed for push %s", push.ID)
		if err != nil {
			msg += ": " + err.Error()
		}
		if result.Stderr != "" {
			msg += "; stderr: " + audience.TruncateStderr(result.Stderr)
		}
		return fmt.Errorf("%s", msg)
	}

	exec.metrics.AudienceSize += len(result.GeneratedFiles)
	return nil
}

// runTestSending issues exactly one downstream call covering the whole push
// sequence; the downstream service iterates the sequence itself.
func (x *Executor) runTestSending(ctx context.Context, exec *execution) error {
	a := &exec.automation
	if !a.DryRunFirst() {
		x.appendLog(exec, models.LogLevelInfo, models.PhaseTestSending, "dry-run-first disabled, skipping test send")
		return nil
	}

	result, err := x.downstream.Send(ctx, a.ID, downstream.ModeTestLiveSend, downstream.DefaultTimeout, x.downstreamLogFunc(exec, models.PhaseTestSending))
	if err != nil {
		return fmt.Errorf("test send failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("test send failed: %s", result.Message)
	}

	exec.config.MarkTestsSent()
	return nil
}

// runCancellationWindow holds the execution open for operator cancellation.
// The window polls for emergency stop and abort, logging the countdown at
// five-minute boundaries and at one minute remaining.
func (x *Executor) runCancellationWindow(ctx context.Context, exec *execution) error {
	a := &exec.automation
	window := time.Duration(a.CancellationWindowMinutes()) * time.Minute
	deadline := x.clock.Now().Add(window)
	exec.config.OpenCancellationWindow(deadline)

	x.appendLog(exec, models.LogLevelInfo, models.PhaseCancellationWindow,
		fmt.Sprintf("cancellation window open for %d minutes (deadline %s)", a.CancellationWindowMinutes(), deadline.UTC().Format(time.RFC3339)))

	ticker := time.NewTicker(x.pollInterval)
	defer ticker.Stop()

	lastLoggedMinute := -1
	for {
		if exec.config.EmergencyStopRequested() {
			return fmt.Errorf("Emergency stop requested")
		}

		remaining := deadline.Sub(x.clock.Now())
		if remaining <= 0 {
			exec.config.CloseCancellationWindow()
			x.appendLog(exec, models.LogLevelInfo, models.PhaseCancellationWindow, "cancellation window closed, proceeding to live execution")
			return nil
		}

		remainingMin := int(remaining.Minutes())
		if remainingMin != lastLoggedMinute && (remainingMin%5 == 0 || remainingMin == 1) {
			lastLoggedMinute = remainingMin
			x.appendLog(exec, models.LogLevelInfo, models.PhaseCancellationWindow,
				fmt.Sprintf("%d minute(s) remaining in cancellation window", remainingMin))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runLiveExecution issues the single live downstream call for the whole
// sequence. Test-mode automations run real audiences without delivery.
func (x *Executor) runLiveExecution(ctx context.Context, exec *execution) error {
	a := &exec.automation

	mode := downstream.ModeLiveSend
	if a.AudienceCriteria.TestMode {
		mode = downstream.ModeRealDryRun
	}

	result, err := x.downstream.Send(ctx, a.ID, mode, downstream.LiveTimeout, x.downstreamLogFunc(exec, models.PhaseLiveExecution))
	if err != nil {
		exec.metrics.PushesFailed = len(a.PushSequence)
		return fmt.Errorf("live execution failed: %w", err)
	}
	if !result.Success {
		exec.metrics.PushesFailed = len(a.PushSequence)
		return fmt.Errorf("live execution failed: %s", result.Message)
	}

	exec.metrics.PushesSent = len(a.PushSequence)
	return nil
}

// runCleanup removes test artifacts; real automations are untouched.
func (x *Executor) runCleanup(ctx context.Context, exec *execution, definitions DefinitionStore) error {
	a := &exec.automation
	if !a.Settings.IsTest && !strings.HasPrefix(a.Name, testArtifactPrefix) {
		return nil
	}

	if x.unschedule != nil {
		x.unschedule(a.ID)
	}
	if err := definitions.DeleteAutomation(ctx, a.ID); err != nil {
		// cleanup failures leave a stale test definition behind, nothing worse
		x.appendLog(exec, models.LogLevelWarn, models.PhaseCleanup,
			fmt.Sprintf("failed to delete test automation definition: %v", err))
		return nil
	}

	x.appendLog(exec, models.LogLevelInfo, models.PhaseCleanup, "test automation unscheduled and deleted")
	return nil
}

// downstreamLogFunc bridges downstream stream logs into the execution log.
func (x *Executor) downstreamLogFunc(exec *execution, phase models.Phase) downstream.LogFunc {
	return func(level, stage, message string) {
		lvl := models.LogLevel(level)
		switch lvl {
		case models.LogLevelInfo, models.LogLevelWarn, models.LogLevelError, models.LogLevelDebug, models.LogLevelSuccess:
		default:
			lvl = models.LogLevelInfo
		}
		if stage != "" {
			message = "[" + stage + "] " + message
		}
		x.appendLog(exec, lvl, phase, message)
	}
}
