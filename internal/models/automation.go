package models

import "time"

// AutomationStatus represents the lifecycle status of an automation definition.
type AutomationStatus string

const (
	AutomationStatusDraft     AutomationStatus = "draft"
	AutomationStatusScheduled AutomationStatus = "scheduled"
	AutomationStatusActive    AutomationStatus = "active"
	AutomationStatusPaused    AutomationStatus = "paused"
	AutomationStatusRunning   AutomationStatus = "running"
	AutomationStatusFailed    AutomationStatus = "failed"
	AutomationStatusCompleted AutomationStatus = "completed"
	AutomationStatusCancelled AutomationStatus = "cancelled"
	AutomationStatusInactive  AutomationStatus = "inactive"
)

// Frequency represents how often an automation fires.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// DefaultTimezone is applied when a schedule omits its IANA timezone.
const DefaultTimezone = "America/Chicago"

// Default safety settings; test mode compresses both.
const (
	DefaultLeadTimeMinutes           = 30
	TestModeLeadTimeMinutes          = 3
	DefaultCancellationWindowMinutes = 25
	TestModeCancellationWindowMin    = 2
)

// Schedule describes when an automation starts relative to its send time.
type Schedule struct {
	Timezone        string    `json:"timezone,omitempty" example:"America/Chicago"`
	Frequency       Frequency `json:"frequency" example:"daily"`
	ExecutionTime   string    `json:"executionTime" example:"14:30"` // local HH:MM send time
	StartDate       string    `json:"startDate,omitempty" example:"2026-09-01"`
	LeadTimeMinutes *int      `json:"leadTimeMinutes,omitempty" example:"30"`
	CronExpression  string    `json:"cronExpression,omitempty" example:"0 14 * * *"`
	DayOfWeek       *int      `json:"dayOfWeek,omitempty" example:"1"`
	DayOfMonth      *int      `json:"dayOfMonth,omitempty" example:"1"`
}

// AutomationPush is a single push payload inside an automation's sequence.
type AutomationPush struct {
	ID            string `json:"id"`
	SequenceOrder int    `json:"sequenceOrder"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	LayerID       string `json:"layerId,omitempty"`
	DeepLink      string `json:"deepLink,omitempty"`
}

// CustomScript selects an audience-generation script and its parameters.
type CustomScript struct {
	ScriptID      string `json:"scriptId"`
	LookbackHours int    `json:"lookbackHours,omitempty"`
	CoolingHours  int    `json:"coolingHours,omitempty"`
}

// AudienceCriteria describes how target audiences are produced.
type AudienceCriteria struct {
	TestMode     bool          `json:"testMode"`
	CustomScript *CustomScript `json:"customScript,omitempty"`
}

// Settings holds per-automation safety configuration.
type Settings struct {
	DryRunFirst               *bool `json:"dryRunFirst,omitempty"`
	CancellationWindowMinutes *int  `json:"cancellationWindowMinutes,omitempty"`
	EmergencyStopEnabled      bool  `json:"emergencyStopEnabled,omitempty"`
	IsTest                    bool  `json:"isTest,omitempty"`
}

// Automation is a scheduled campaign definition, owned by the definition store.
type Automation struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	IsActive         bool             `json:"isActive"`
	Status           AutomationStatus `json:"status"`
	Schedule         Schedule         `json:"schedule"`
	PushSequence     []AutomationPush `json:"pushSequence"`
	AudienceCriteria AudienceCriteria `json:"audienceCriteria"`
	Settings         Settings         `json:"settings"`
	CreatedAt        time.Time        `json:"createdAt,omitempty"`
	UpdatedAt        time.Time        `json:"updatedAt,omitempty"`
}

// ScriptID returns the configured audience script id, empty when unset.
func (a *Automation) ScriptID() string {
	if a.AudienceCriteria.CustomScript == nil {
		return ""
	}
	return a.AudienceCriteria.CustomScript.ScriptID
}

// LeadTimeMinutes resolves the effective lead time, compressed in test mode.
func (a *Automation) LeadTimeMinutes() int {
	if a.AudienceCriteria.TestMode {
		return TestModeLeadTimeMinutes
	}
	if a.Schedule.LeadTimeMinutes != nil {
		return *a.Schedule.LeadTimeMinutes
	}
	return DefaultLeadTimeMinutes
}

// CancellationWindowMinutes resolves the effective window, compressed in test mode.
func (a *Automation) CancellationWindowMinutes() int {
	if a.AudienceCriteria.TestMode {
		return TestModeCancellationWindowMin
	}
	if a.Settings.CancellationWindowMinutes != nil {
		return *a.Settings.CancellationWindowMinutes
	}
	return DefaultCancellationWindowMinutes
}

// DryRunFirst resolves the dry-run-first setting, defaulting to true.
func (a *Automation) DryRunFirst() bool {
	if a.Settings.DryRunFirst == nil {
		return true
	}
	return *a.Settings.DryRunFirst
}

// Timezone resolves the schedule timezone, defaulting to America/Chicago.
func (a *Automation) Timezone() string {
	if a.Schedule.Timezone == "" {
		return DefaultTimezone
	}
	return a.Schedule.Timezone
}
