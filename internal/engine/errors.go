package engine

import (
	"errors"
	"fmt"
)

// ErrAutomationNotFound is returned when a control action names an unknown automation.
var ErrAutomationNotFound = errors.New("automation not found")

// ErrExecutionActive is returned when a second execution is requested for a
// running automation.
var ErrExecutionActive = errors.New("execution already active for automation")

// ErrNoActiveExecution is returned when a control action requires a running execution.
var ErrNoActiveExecution = errors.New("no active execution for automation")

// ErrNotInitialized is returned by Get before Init has run.
var ErrNotInitialized = errors.New("automation engine not initialized")

// ErrBuildPhase is returned when engine construction is attempted during
// build-time static analysis.
var ErrBuildPhase = errors.New("automation engine must not be instantiated during build phase")

// ValidationError represents user-facing validation issues.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string {
	return e.msg
}

// NewValidationError creates a new validation error.
func NewValidationError(format string, args ...interface{}) error {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}
