package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koreksi-go-api/internal/dto"
	"github.com/noah-isme/koreksi-go-api/internal/service"
	"github.com/noah-isme/koreksi-go-api/internal/utils"
)

// IterationHandler manages per-slot iteration endpoints.
type IterationHandler struct {
	service service.IterationService
	logger  zerolog.Logger
}

// NewIterationHandler builds an iteration handler instance.
func NewIterationHandler(service service.IterationService, logger zerolog.Logger) *IterationHandler {
	return &IterationHandler{
		service: service,
		logger:  logger.With().Str("component", "iteration_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *IterationHandler) Register(router fiber.Router) {
	router.Get("/:slotID/iterations", h.list)
	router.Post("/:slotID/iterations", h.open)
	router.Post("/:slotID/iterations/:n/submit", h.submit)
}

func (h *IterationHandler) open(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "slotID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.IterationOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	iteration, err := h.service.GetOrOpen(c.Context(), slotID, payload, actorFromCtx(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "iteration ready", iteration)
}

func (h *IterationHandler) submit(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "slotID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	number, err := parseIntParam(c, "n")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromCtx(c)

	// File slots submit multipart uploads; text and question slots submit a
	// JSON or form body.
	if file, fileErr := c.FormFile("file"); fileErr == nil && file != nil {
		submissionID, parseErr := parseFormUint(c, "submission_id")
		if parseErr != nil {
			return utils.SendError(c, fiber.StatusBadRequest, parseErr.Error())
		}

		iteration, submitErr := h.service.SubmitFile(c.Context(), slotID, number, submissionID, actor, file)
		if submitErr != nil {
			return h.handleError(c, submitErr)
		}

		return utils.SendSuccess(c, "iteration submitted", iteration)
	}

	var payload dto.IterationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	iteration, err := h.service.SubmitText(c.Context(), slotID, number, payload, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "iteration submitted", iteration)
}

func (h *IterationHandler) list(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "slotID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissionID, err := parseQueryUint(c, "submission_id")
	if err != nil || submissionID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "submission_id query parameter is required")
	}

	iterations, err := h.service.List(c.Context(), slotID, *submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "iterations retrieved", iterations)
}

func (h *IterationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer slot not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrIterationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "iteration not found")
	case errors.Is(err, service.ErrSlotLocked):
		return utils.SendError(c, fiber.StatusConflict, "slot is locked for further iterations")
	case errors.Is(err, service.ErrSubmissionLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission is locked")
	case errors.Is(err, service.ErrEmptyContent):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "content is empty")
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

func parseFormUint(c *fiber.Ctx, key string) (uint, error) {
	value := c.FormValue(key)
	if value == "" {
		return 0, errors.New("missing " + key)
	}
	parsed, err := parseUintString(value)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}
