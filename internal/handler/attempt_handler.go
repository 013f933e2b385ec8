package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/internal/utils"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

// AttemptHandler exposes attempt submission endpoints.
type AttemptHandler struct {
	service   service.AttemptService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(service service.AttemptService, validator *validator.Validate, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group. submit is
// applied to the grading route only.
func (h *AttemptHandler) Register(router fiber.Router, submit ...fiber.Handler) {
	router.Post("", guarded(submit, h.create)...)
	router.Get("/me", h.listMine)
	router.Get("/:id", h.get)
}

func (h *AttemptHandler) create(c *fiber.Ctx) error {
	var payload dto.AttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Submit(withRequestContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt graded", response)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(withRequestContext(c), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempt retrieved", response)
}

func (h *AttemptHandler) listMine(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	items, err := h.service.ListByUser(withRequestContext(c), userIDFromContext(c), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attempts retrieved", items)
}

func (h *AttemptHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrExerciseNotFound), errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAttemptForbidden):
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	case errors.Is(err, grader.ErrUnsupportedLanguage),
		errors.Is(err, grader.ErrInvalidFunctionName),
		errors.Is(err, grader.ErrInvalidTestCases):
		requestLogger(h.logger, c).Error().Err(err).Msg("exercise cannot be graded")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "exercise cannot be graded: "+err.Error())
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("attempt operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
