package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/internal/utils"
)

// AssistantHandler exposes hint and rival endpoints.
type AssistantHandler struct {
	service   service.AssistantService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantHandler constructs the handler.
func NewAssistantHandler(service service.AssistantService, validator *validator.Validate, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/hint", h.hint)
	router.Post("/rival", h.rival)
}

func (h *AssistantHandler) hint(c *fiber.Ctx) error {
	var payload dto.HintRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	response, err := h.service.Hint(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "hint generated", response)
}

func (h *AssistantHandler) rival(c *fiber.Ctx) error {
	var payload dto.RivalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	response, err := h.service.Rival(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "rival generated", response)
}

func (h *AssistantHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAssistantUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "assistant unavailable")
	case errors.Is(err, service.ErrExerciseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("assistant request failed")
		return utils.SendError(c, fiber.StatusBadGateway, "assistant request failed")
	}
}
