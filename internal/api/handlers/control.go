package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/response"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/storage"
	"go.uber.org/zap"
)

// ControlHandler handles operator control actions against automations.
type ControlHandler struct {
	logger logging.Logger
	engine *engine.Engine
}

// NewControlHandler creates a new control handler.
func NewControlHandler(logger logging.Logger, eng *engine.Engine) *ControlHandler {
	return &ControlHandler{
		logger: logger.With(zap.String("handler", "control")),
		engine: eng,
	}
}

// Control godoc
// @Summary Execute a control action against an automation
// @Description Applies emergency_stop, cancel, pause, resume or execute_now to the automation
// @Tags Automations
// @Accept json
// @Produce json
// @Param request body models.ControlRequest true "Control action"
// @Success 200 {object} models.ControlResponse
// @Failure 400 {object} response.ErrorResponse "Invalid request"
// @Failure 404 {object} response.ErrorResponse "Automation not found"
// @Failure 409 {object} response.ErrorResponse "Execution already running"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /api/v1/automations/control [post]
func (h *ControlHandler) Control(c *gin.Context) {
	var req models.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid control request",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	h.logger.Info("control action received",
		zap.String("automation_id", req.AutomationID),
		zap.String("action", string(req.Action)),
		zap.String("request_id", response.GetRequestID(c)),
	)

	ctx := c.Request.Context()
	var resp models.ControlResponse

	switch req.Action {
	case models.ControlActionEmergencyStop:
		if err := h.engine.EmergencyStop(req.AutomationID); err != nil {
			if errors.Is(err, engine.ErrNoActiveExecution) {
				response.NotFound(c, "no active execution for automation")
				return
			}
			response.InternalServerError(c, err.Error())
			return
		}
		resp = models.ControlResponse{Success: true, Status: "stopping", Message: "Emergency stop requested"}

	case models.ControlActionCancel:
		reason := req.Reason
		if reason == "" {
			reason = "cancelled by operator"
		}
		if err := h.engine.Cancel(ctx, req.AutomationID, reason); err != nil {
			response.InternalServerError(c, err.Error())
			return
		}
		resp = models.ControlResponse{Success: true, Status: "cancelled", Message: "automation cancelled"}

	case models.ControlActionPause:
		if err := h.engine.Pause(ctx, req.AutomationID); err != nil {
			h.handleEngineError(c, req.AutomationID, err)
			return
		}
		resp = models.ControlResponse{Success: true, Status: "paused", Message: "automation paused"}

	case models.ControlActionResume:
		if err := h.engine.Resume(ctx, req.AutomationID); err != nil {
			h.handleEngineError(c, req.AutomationID, err)
			return
		}
		resp = models.ControlResponse{Success: true, Status: "active", Message: "automation resumed"}

	case models.ControlActionExecuteNow:
		executionID, err := h.engine.ExecuteNow(ctx, req.AutomationID)
		if err != nil {
			h.handleEngineError(c, req.AutomationID, err)
			return
		}
		resp = models.ControlResponse{Success: true, ExecutionID: executionID, Status: "running", Message: "execution started"}

	default:
		response.BadRequest(c, "unknown action", string(req.Action))
		return
	}

	response.OK(c, resp)
}

// ControlStatus godoc
// @Summary Get control status for an automation
// @Description Returns definition, execution state, cancellation window and available actions
// @Tags Automations
// @Produce json
// @Param id query string true "Automation ID"
// @Success 200 {object} models.ControlStatusResponse
// @Failure 400 {object} response.ErrorResponse "Missing automation id"
// @Failure 404 {object} response.ErrorResponse "Automation not found"
// @Router /api/v1/automations/control [get]
func (h *ControlHandler) ControlStatus(c *gin.Context) {
	automationID := c.Query("id")
	if automationID == "" {
		automationID = c.Query("automationId")
	}
	if automationID == "" {
		response.BadRequest(c, "automation id is required", nil)
		return
	}

	automation, err := h.engine.Definitions().GetAutomation(c.Request.Context(), automationID)
	if err != nil {
		h.handleEngineError(c, automationID, err)
		return
	}

	execStatus, cancelInfo := h.engine.Status(automationID)

	response.OK(c, models.ControlStatusResponse{
		Automation:                   automation,
		ExecutionStatus:              execStatus,
		CancellationInfo:             cancelInfo,
		AvailableActions:             h.availableActions(automation, execStatus),
		EmergencyStopAlwaysAvailable: automation.Settings.EmergencyStopEnabled,
	})
}

// availableActions derives the operator actions that make sense for the
// automation's current scheduling and execution state.
func (h *ControlHandler) availableActions(a *models.Automation, execStatus *models.ExecutionStatusInfo) []models.ControlAction {
	actions := make([]models.ControlAction, 0, 4)

	if execStatus != nil {
		actions = append(actions, models.ControlActionEmergencyStop)
		if execStatus.CanCancel {
			actions = append(actions, models.ControlActionCancel)
		}
		return actions
	}

	if h.engine.IsScheduled(a.ID) {
		actions = append(actions, models.ControlActionExecuteNow, models.ControlActionCancel, models.ControlActionPause)
	} else {
		actions = append(actions, models.ControlActionResume)
	}
	return actions
}

func (h *ControlHandler) handleEngineError(c *gin.Context, automationID string, err error) {
	switch {
	case errors.Is(err, storage.ErrAutomationNotFound), errors.Is(err, engine.ErrAutomationNotFound):
		response.NotFound(c, "automation not found")
	case errors.Is(err, engine.ErrExecutionActive):
		response.Conflict(c, "an execution is already running for this automation", nil)
	case errors.Is(err, engine.ErrNoActiveExecution):
		response.NotFound(c, "no active execution for automation")
	default:
		h.logger.Error("control action failed",
			zap.String("automation_id", automationID),
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, err.Error())
	}
}
