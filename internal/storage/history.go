package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
)

// TrackExecutionStart inserts a history row for a starting execution and
// returns its server-assigned id.
func (c *MySQLClient) TrackExecutionStart(ctx context.Context, automationID, automationName, instanceID string) (int64, error) {
	res, err := c.db.ExecContext(
		ctx,
		`INSERT INTO automation_history
		 (automation_id, automation_name, status, current_phase, started_at, instance_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		automationID,
		automationName,
		models.ExecutionStatusRunning,
		models.PhaseAudienceGeneration,
		time.Now().UTC(),
		instanceID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert history row: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history insert id: %w", err)
	}
	return id, nil
}

// TrackExecutionPhase updates the current phase on the history row.
func (c *MySQLClient) TrackExecutionPhase(ctx context.Context, recordID int64, phase models.Phase) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE automation_history SET current_phase = ? WHERE id = ?`,
		phase, recordID,
	)
	if err != nil {
		return fmt.Errorf("update history phase: %w", err)
	}
	return nil
}

// TrackExecutionComplete finalizes the history row with terminal status,
// metrics and error details.
func (c *MySQLClient) TrackExecutionComplete(ctx context.Context, recordID int64, status models.ExecutionStatus, metrics models.ExecutionMetrics, startTime time.Time, errorMessage, errorStack string) error {
	completedAt := time.Now().UTC()
	durationMs := completedAt.Sub(startTime).Milliseconds()

	var errMsg, errStk interface{}
	if errorMessage != "" {
		errMsg = errorMessage
	}
	if errorStack != "" {
		errStk = errorStack
	}

	_, err := c.db.ExecContext(
		ctx,
		`UPDATE automation_history
		 SET status = ?, completed_at = ?, duration_ms = ?,
		     audience_size = ?, pushes_sent = ?, pushes_failed = ?,
		     error_message = ?, error_stack = ?
		 WHERE id = ?`,
		status,
		completedAt,
		durationMs,
		metrics.AudienceSize,
		metrics.PushesSent,
		metrics.PushesFailed,
		errMsg,
		errStk,
		recordID,
	)
	if err != nil {
		return fmt.Errorf("complete history row: %w", err)
	}
	return nil
}
