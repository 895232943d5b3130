package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pushmill/automation-engine/internal/models"
)

// ErrAutomationNotFound is returned when an automation definition is missing.
var ErrAutomationNotFound = errors.New("automation not found")

// ErrInvalidDefinition wraps ingest-validation failures for a stored document.
var ErrInvalidDefinition = errors.New("invalid automation definition")

// GetAutomation loads and validates one automation definition.
func (c *MySQLClient) GetAutomation(ctx context.Context, automationID string) (*models.Automation, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT definition FROM automations WHERE id = ?`,
		automationID,
	)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("scan automation: %w", err)
	}

	return decodeDefinition(doc)
}

// ListAutomations loads every definition. Documents failing ingest validation
// are returned separately so callers can log them without losing the rest.
func (c *MySQLClient) ListAutomations(ctx context.Context) ([]models.Automation, []string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, definition FROM automations ORDER BY created_at ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("query automations: %w", err)
	}
	defer rows.Close()

	var automations []models.Automation
	var skipped []string

	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, nil, fmt.Errorf("scan automation row: %w", err)
		}

		automation, err := decodeDefinition(doc)
		if err != nil {
			skipped = append(skipped, id)
			continue
		}
		automations = append(automations, *automation)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate automations: %w", err)
	}

	return automations, skipped, nil
}

// UpdateAutomationStatus flips the lifecycle status both in the indexed column
// and inside the stored document. Used only for control actions (pause/resume).
func (c *MySQLClient) UpdateAutomationStatus(ctx context.Context, automationID string, status models.AutomationStatus) error {
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE automations
		 SET status = ?,
		     definition = JSON_SET(definition, '$.status', ?),
		     updated_at = NOW()
		 WHERE id = ?`,
		status, status, automationID,
	)
	if err != nil {
		return fmt.Errorf("update automation status: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAutomationNotFound
	}
	return nil
}

// DeleteAutomation removes a definition. Used only by phase-5 cleanup of test
// artifacts.
func (c *MySQLClient) DeleteAutomation(ctx context.Context, automationID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, automationID)
	if err != nil {
		return fmt.Errorf("delete automation: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAutomationNotFound
	}
	return nil
}

// decodeDefinition validates a raw document against the ingest schema before
// unmarshaling it.
func decodeDefinition(doc []byte) (*models.Automation, error) {
	if err := models.ValidateDefinition(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	var automation models.Automation
	if err := json.Unmarshal(doc, &automation); err != nil {
		return nil, fmt.Errorf("unmarshal automation definition: %w", err)
	}
	return &automation, nil
}
