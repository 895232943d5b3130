package engine

import (
	"context"
	"time"

	"github.com/pushmill/automation-engine/internal/audience"
	"github.com/pushmill/automation-engine/internal/downstream"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/platform/events"
)

// DefinitionStore provides read access to automation definitions, plus the
// two engine-initiated writes: control-action status flips and test-artifact
// cleanup.
type DefinitionStore interface {
	GetAutomation(ctx context.Context, automationID string) (*models.Automation, error)
	ListAutomations(ctx context.Context) ([]models.Automation, []string, error)
	UpdateAutomationStatus(ctx context.Context, automationID string, status models.AutomationStatus) error
	DeleteAutomation(ctx context.Context, automationID string) error
}

// ProgressStore is the durable, process-external record of in-flight executions.
type ProgressStore interface {
	StartExecution(ctx context.Context, executionID, automationID, automationName, instanceID string) error
	UpdateProgress(ctx context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string, current, total int) error
	AppendLog(ctx context.Context, executionID, automationID string, level models.LogLevel, phase models.Phase, message string) error
	CompleteExecution(ctx context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string) error
	GetExecution(ctx context.Context, executionID string) (*models.ProgressRecord, error)
	GetLatestExecution(ctx context.Context, automationID string) (*models.ProgressRecord, error)
	GetLogs(ctx context.Context, executionID string) ([]models.ExecutionLogEntry, error)
}

// HistoryStore records completed executions. All operations are non-fatal to
// the execution that calls them.
type HistoryStore interface {
	TrackExecutionStart(ctx context.Context, automationID, automationName, instanceID string) (int64, error)
	TrackExecutionPhase(ctx context.Context, recordID int64, phase models.Phase) error
	TrackExecutionComplete(ctx context.Context, recordID int64, status models.ExecutionStatus, metrics models.ExecutionMetrics, startTime time.Time, errorMessage, errorStack string) error
}

// DownstreamSender abstracts the push-send SSE client.
type DownstreamSender interface {
	Send(ctx context.Context, automationID string, mode downstream.Mode, timeout time.Duration, onLog downstream.LogFunc) (downstream.Result, error)
}

// GeneratorRegistry exposes in-process audience generators by script id.
type GeneratorRegistry interface {
	Has(scriptID string) bool
	Get(scriptID string) audience.Generator
}

// SubprocessRunner runs legacy audience-generation scripts.
type SubprocessRunner interface {
	ExecuteScript(ctx context.Context, scriptID string, args []string, executionID string, dryRun bool) (audience.ScriptResult, error)
}

// LifecyclePublisher emits execution lifecycle events for external consumers.
type LifecyclePublisher interface {
	Publish(ctx context.Context, ev events.ExecutionEvent) error
}
