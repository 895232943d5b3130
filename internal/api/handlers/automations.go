package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/response"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/storage"
	"go.uber.org/zap"
)

// AutomationHandler exposes the schedule table to operators.
type AutomationHandler struct {
	logger logging.Logger
	engine *engine.Engine
}

// NewAutomationHandler creates a new automation handler.
func NewAutomationHandler(logger logging.Logger, eng *engine.Engine) *AutomationHandler {
	return &AutomationHandler{
		logger: logger.With(zap.String("handler", "automations")),
		engine: eng,
	}
}

// ListScheduled godoc
// @Summary List scheduled automations
// @Description Returns every automation with an installed cron handle and its next fire time
// @Tags Automations
// @Produce json
// @Success 200 {array} engine.ScheduledEntryInfo
// @Router /api/v1/automations [get]
func (h *AutomationHandler) ListScheduled(c *gin.Context) {
	response.OK(c, h.engine.ListScheduled())
}

// Schedule godoc
// @Summary Schedule an automation
// @Description Loads the automation definition and installs (or replaces) its cron handle
// @Tags Automations
// @Produce json
// @Param id path string true "Automation ID"
// @Success 200 {object} engine.ScheduleResult
// @Failure 400 {object} response.ErrorResponse "Definition rejected"
// @Failure 404 {object} response.ErrorResponse "Automation not found"
// @Router /api/v1/automations/{id}/schedule [post]
func (h *AutomationHandler) Schedule(c *gin.Context) {
	automationID := c.Param("id")

	automation, err := h.engine.Definitions().GetAutomation(c.Request.Context(), automationID)
	if err != nil {
		if errors.Is(err, storage.ErrAutomationNotFound) {
			response.NotFound(c, "automation not found")
			return
		}
		if errors.Is(err, storage.ErrInvalidDefinition) {
			response.BadRequest(c, "automation definition rejected", err.Error())
			return
		}
		response.InternalServerError(c, err.Error())
		return
	}

	result := h.engine.Schedule(c.Request.Context(), *automation)
	if !result.OK {
		response.BadRequest(c, result.Message, nil)
		return
	}
	response.OK(c, result)
}

// Unschedule godoc
// @Summary Unschedule an automation
// @Description Removes the automation's cron handle. Idempotent.
// @Tags Automations
// @Produce json
// @Param id path string true "Automation ID"
// @Success 200 {object} engine.ScheduleResult
// @Router /api/v1/automations/{id}/schedule [delete]
func (h *AutomationHandler) Unschedule(c *gin.Context) {
	automationID := c.Param("id")
	_, msg := h.engine.Unschedule(automationID)
	response.OK(c, engine.ScheduleResult{OK: true, Message: msg})
}

// Debug godoc
// @Summary Engine debug snapshot
// @Description Returns instance id, restoration metadata, scheduled entries and active executions
// @Tags System
// @Produce json
// @Success 200 {object} engine.DebugInfo
// @Router /api/v1/automations/debug [get]
func (h *AutomationHandler) Debug(c *gin.Context) {
	response.OK(c, h.engine.DebugInfo())
}
