package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
)

// ErrExecutionNotFound is returned when a progress row is missing.
var ErrExecutionNotFound = errors.New("execution not found")

// StartExecution inserts the progress row for a new execution.
func (c *MySQLClient) StartExecution(ctx context.Context, executionID, automationID, automationName, instanceID string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO automation_executions
		 (execution_id, automation_id, automation_name, instance_id, status, current_phase, progress_current, progress_total, message, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, '', ?)`,
		executionID,
		automationID,
		automationName,
		instanceID,
		models.ExecutionStatusRunning,
		models.PhaseAudienceGeneration,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// UpdateProgress updates the in-flight status, phase and counters.
func (c *MySQLClient) UpdateProgress(ctx context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string, current, total int) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE automation_executions
		 SET status = ?, current_phase = ?, message = ?, progress_current = ?, progress_total = ?
		 WHERE execution_id = ?`,
		status, phase, message, current, total, executionID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// AppendLog appends one timestamped log entry. The auto-increment id
// preserves append order for readers.
func (c *MySQLClient) AppendLog(ctx context.Context, executionID, automationID string, level models.LogLevel, phase models.Phase, message string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO execution_logs (execution_id, automation_id, level, phase, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		executionID, automationID, level, phase, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append execution log: %w", err)
	}
	return nil
}

// CompleteExecution finalizes the progress row with a terminal status.
func (c *MySQLClient) CompleteExecution(ctx context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE automation_executions
		 SET status = ?, current_phase = ?, message = ?, completed_at = ?
		 WHERE execution_id = ?`,
		status, phase, message, time.Now().UTC(), executionID,
	)
	if err != nil {
		return fmt.Errorf("complete execution: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution loads a progress row without its logs.
func (c *MySQLClient) GetExecution(ctx context.Context, executionID string) (*models.ProgressRecord, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT execution_id, automation_id, automation_name, instance_id, status, current_phase,
		        progress_current, progress_total, message, started_at, completed_at
		 FROM automation_executions WHERE execution_id = ?`,
		executionID,
	)
	return scanProgressRecord(row)
}

// GetLatestExecution loads the most recent progress row for an automation.
func (c *MySQLClient) GetLatestExecution(ctx context.Context, automationID string) (*models.ProgressRecord, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT execution_id, automation_id, automation_name, instance_id, status, current_phase,
		        progress_current, progress_total, message, started_at, completed_at
		 FROM automation_executions
		 WHERE automation_id = ?
		 ORDER BY started_at DESC
		 LIMIT 1`,
		automationID,
	)
	return scanProgressRecord(row)
}

// GetLogs returns the execution's log entries in append order.
func (c *MySQLClient) GetLogs(ctx context.Context, executionID string) ([]models.ExecutionLogEntry, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT created_at, level, phase, message
		 FROM execution_logs
		 WHERE execution_id = ?
		 ORDER BY id ASC`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query execution logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.ExecutionLogEntry, 0)
	for rows.Next() {
		var entry models.ExecutionLogEntry
		if err := rows.Scan(&entry.Timestamp, &entry.Level, &entry.Phase, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution logs: %w", err)
	}
	return logs, nil
}

func scanProgressRecord(row *sql.Row) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	var completedAt sql.NullTime
	err := row.Scan(
		&rec.ExecutionID,
		&rec.AutomationID,
		&rec.AutomationName,
		&rec.InstanceID,
		&rec.Status,
		&rec.CurrentPhase,
		&rec.ProgressCurrent,
		&rec.ProgressTotal,
		&rec.Message,
		&rec.StartedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}
