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

// ExecutionHandler exposes the code playground endpoint.
type ExecutionHandler struct {
	service   service.CodeExecutionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExecutionHandler constructs the handler.
func NewExecutionHandler(service service.CodeExecutionService, validator *validator.Validate, logger zerolog.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "execution_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *ExecutionHandler) Register(router fiber.Router) {
	router.Post("", h.execute)
}

func (h *ExecutionHandler) execute(c *fiber.Ctx) error {
	var payload dto.ExecuteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	response, err := h.service.Execute(withRequestContext(c), payload)
	if err != nil {
		if errors.Is(err, grader.ErrUnsupportedLanguage) {
			return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("code execution failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "code executed", response)
}
