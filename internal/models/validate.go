package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// definitionSchema is the strict ingest schema for automation definitions.
// Unknown fields are rejected at every level; the engine only schedules
// documents it fully understands.
const definitionSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["id", "name", "isActive", "status", "schedule", "pushSequence"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"isActive": {"type": "boolean"},
		"status": {"type": "string", "enum": ["draft", "scheduled", "active", "paused", "running", "failed", "completed", "cancelled", "inactive"]},
		"schedule": {
			"type": "object",
			"additionalProperties": false,
			"required": ["frequency", "executionTime"],
			"properties": {
				"timezone": {"type": "string"},
				"frequency": {"type": "string", "enum": ["once", "daily", "weekly", "monthly", "custom"]},
				"executionTime": {"type": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
				"startDate": {"type": "string"},
				"leadTimeMinutes": {"type": "integer", "minimum": 0},
				"cronExpression": {"type": "string"},
				"dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6},
				"dayOfMonth": {"type": "integer", "minimum": 1, "maximum": 31}
			}
		},
		"pushSequence": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["id", "sequenceOrder", "title", "body"],
				"properties": {
					"id": {"type": "string"},
					"sequenceOrder": {"type": "integer"},
					"title": {"type": "string"},
					"body": {"type": "string"},
					"layerId": {"type": "string"},
					"deepLink": {"type": "string"}
				}
			}
		},
		"audienceCriteria": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"testMode": {"type": "boolean"},
				"customScript": {
					"type": "object",
					"additionalProperties": false,
					"required": ["scriptId"],
					"properties": {
						"scriptId": {"type": "string", "minLength": 1},
						"lookbackHours": {"type": "integer", "minimum": 0},
						"coolingHours": {"type": "integer", "minimum": 0}
					}
				}
			}
		},
		"settings": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"dryRunFirst": {"type": "boolean"},
				"cancellationWindowMinutes": {"type": "integer", "minimum": 0},
				"emergencyStopEnabled": {"type": "boolean"},
				"isTest": {"type": "boolean"}
			}
		},
		"createdAt": {"type": "string"},
		"updatedAt": {"type": "string"}
	}
}`

var compiledDefinitionSchema = gojsonschema.NewStringLoader(definitionSchema)

// ValidateDefinition checks a raw automation document against the ingest
// schema. Definitions with unknown or malformed fields never reach the
// schedule table.
func ValidateDefinition(doc []byte) error {
	result, err := gojsonschema.Validate(compiledDefinitionSchema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate definition: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return fmt.Errorf("invalid automation definition: %s", strings.Join(issues, "; "))
}
