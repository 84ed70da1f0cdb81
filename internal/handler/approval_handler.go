package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/service"
	"github.com/noah-isme/koreksi-go-api/internal/utils"
)

// ApprovalHandler manages verification decision and activity report endpoints.
type ApprovalHandler struct {
	approvals service.ApprovalService
	activity  service.ActivityService
	logger    zerolog.Logger
}

// NewApprovalHandler builds an approval handler instance.
func NewApprovalHandler(approvals service.ApprovalService, activity service.ActivityService, logger zerolog.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		approvals: approvals,
		activity:  activity,
		logger:    logger.With().Str("component", "approval_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ApprovalHandler) Register(router fiber.Router) {
	router.Post("/:id/approval", h.record)
	router.Get("/:id/approvals", h.history)
	router.Get("/:id/activity", h.activityReport)
}

func (h *ApprovalHandler) record(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApprovalCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.approvals.Record(c.Context(), id, payload, actorFromCtx(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "approval recorded", record)
}

func (h *ApprovalHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.approvals.History(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "approval history retrieved", records)
}

func (h *ApprovalHandler) activityReport(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "since must be RFC3339")
		}
		since = &parsed
	}

	report, err := h.activity.Report(c.Context(), id, since)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", report)
}

func (h *ApprovalHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	case errors.Is(err, service.ErrConcurrentModification):
		return utils.SendError(c, fiber.StatusConflict, "concurrent modification, retry")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
