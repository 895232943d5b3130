package models

import "time"

// ExecutionStatus represents the terminal or in-flight status of one execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusAborted   ExecutionStatus = "aborted"
)

// Phase identifies a step in the five-phase execution timeline.
type Phase string

const (
	PhaseAudienceGeneration Phase = "audience_generation"
	PhaseTestSending        Phase = "test_sending"
	PhaseCancellationWindow Phase = "cancellation_window"
	PhaseLiveExecution      Phase = "live_execution"
	PhaseCleanup            Phase = "cleanup"
)

// LogLevel classifies execution log entries.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelDebug   LogLevel = "debug"
	LogLevelSuccess LogLevel = "success"
)

// ExecutionLogEntry is one append-only log line attributed to an execution.
type ExecutionLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
}

// ProgressRecord is the durable, process-external record of an in-flight execution.
type ProgressRecord struct {
	ExecutionID     string              `json:"executionId"`
	AutomationID    string              `json:"automationId"`
	AutomationName  string              `json:"automationName"`
	InstanceID      string              `json:"instanceId"`
	Status          ExecutionStatus     `json:"status"`
	CurrentPhase    Phase               `json:"currentPhase"`
	ProgressCurrent int                 `json:"progressCurrent"`
	ProgressTotal   int                 `json:"progressTotal"`
	Message         string              `json:"message,omitempty"`
	StartedAt       time.Time           `json:"startedAt"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	Logs            []ExecutionLogEntry `json:"logs,omitempty"`
}

// ExecutionMetrics carries final counters for a completed execution.
type ExecutionMetrics struct {
	AudienceSize int `json:"audienceSize"`
	PushesSent   int `json:"pushesSent"`
	PushesFailed int `json:"pushesFailed"`
}

// HistoryRecord is the immutable record of a completed execution.
type HistoryRecord struct {
	ID             int64           `json:"id"`
	AutomationID   string          `json:"automationId"`
	AutomationName string          `json:"automationName"`
	Status         ExecutionStatus `json:"status"`
	CurrentPhase   Phase           `json:"currentPhase"`
	StartedAt      time.Time       `json:"startedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	DurationMs     *int64          `json:"durationMs,omitempty"`
	AudienceSize   int             `json:"audienceSize"`
	PushesSent     int             `json:"pushesSent"`
	PushesFailed   int             `json:"pushesFailed"`
	ErrorMessage   *string         `json:"errorMessage,omitempty"`
	ErrorStack     *string         `json:"errorStack,omitempty"`
	InstanceID     string          `json:"instanceId"`
}

// ControlAction is an operator-initiated action against an automation.
type ControlAction string

const (
	ControlActionEmergencyStop ControlAction = "emergency_stop"
	ControlActionCancel        ControlAction = "cancel"
	ControlActionPause         ControlAction = "pause"
	ControlActionResume        ControlAction = "resume"
	ControlActionExecuteNow    ControlAction = "execute_now"
)

// ControlRequest is the body of POST /automations/control.
type ControlRequest struct {
	AutomationID string        `json:"automationId" binding:"required" example:"a1"`
	Action       ControlAction `json:"action" binding:"required,oneof=emergency_stop cancel pause resume execute_now" example:"cancel"`
	Reason       string        `json:"reason,omitempty" example:"operator requested"`
} // @name ControlRequest

// ControlResponse is the result of a control action.
type ControlResponse struct {
	Success     bool   `json:"success" example:"true"`
	ExecutionID string `json:"executionId,omitempty" example:"3e9c7a44-6f3a-4b9e-9a6b-0f2d1c5e8a77"`
	Status      string `json:"status" example:"cancelled"`
	Message     string `json:"message,omitempty" example:"automation cancelled"`
} // @name ControlResponse

// ExecutionStatusInfo describes a currently running execution.
type ExecutionStatusInfo struct {
	ExecutionID  string    `json:"executionId"`
	CurrentPhase Phase     `json:"currentPhase"`
	StartTime    time.Time `json:"startTime"`
	CanCancel    bool      `json:"canCancel"`
} // @name ExecutionStatusInfo

// CancellationInfo describes the remaining cancellation window.
type CancellationInfo struct {
	CanCancel            bool       `json:"canCancel"`
	CancellationDeadline *time.Time `json:"cancellationDeadline,omitempty"`
	RemainingSeconds     int64      `json:"remainingSeconds"`
} // @name CancellationInfo

// ControlStatusResponse is the body of GET /automations/control.
type ControlStatusResponse struct {
	Automation                   *Automation          `json:"automation"`
	ExecutionStatus              *ExecutionStatusInfo `json:"executionStatus,omitempty"`
	CancellationInfo             *CancellationInfo    `json:"cancellationInfo,omitempty"`
	AvailableActions             []ControlAction      `json:"availableActions"`
	EmergencyStopAlwaysAvailable bool                 `json:"emergencyStopAlwaysAvailable"`
} // @name ControlStatusResponse
