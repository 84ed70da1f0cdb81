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

// AssignmentHandler exposes answer slot registration on assignments.
type AssignmentHandler struct {
	slots  service.SlotService
	logger zerolog.Logger
}

func NewAssignmentHandler(slots service.SlotService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		slots:  slots,
		logger: logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/:id/slots", h.listSlots)
	router.Post("/:id/slots", h.registerSlots)
}

func (h *AssignmentHandler) listSlots(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slots, err := h.slots.List(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "slots retrieved", slots)
}

func (h *AssignmentHandler) registerSlots(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SlotRegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	slots, err := h.slots.Register(c.Context(), id, payload, actorFromCtx(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "slots registered", slots)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
