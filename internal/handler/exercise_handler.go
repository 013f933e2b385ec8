package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/internal/utils"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

// ExerciseHandler exposes exercise HTTP endpoints.
type ExerciseHandler struct {
	service service.ExerciseService
	logger  zerolog.Logger
}

// NewExerciseHandler builds a new exercise handler.
func NewExerciseHandler(service service.ExerciseService, logger zerolog.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		service: service,
		logger:  logger.With().Str("component", "exercise_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group. admin guards
// the authoring routes only; reads stay public.
func (h *ExerciseHandler) Register(router fiber.Router, admin ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", guarded(admin, h.create)...)
	router.Put("/:id", guarded(admin, h.update)...)
	router.Delete("/:id", guarded(admin, h.delete)...)
}

func (h *ExerciseHandler) list(c *fiber.Ctx) error {
	filter := dto.ExerciseFilter{
		Language: c.Query("language"),
		Search:   c.Query("search"),
	}

	if difficulty, err := parseQueryInt(c, "difficulty"); err == nil {
		filter.Difficulty = difficulty
	}
	if page, err := parseQueryInt(c, "page"); err == nil {
		filter.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		filter.PageSize = pageSize
	}

	exercises, err := h.service.List(withRequestContext(c), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list exercises")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve exercises")
	}

	return utils.SendSuccess(c, "exercises retrieved", exercises)
}

func (h *ExerciseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exercise, err := h.service.Get(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err, "failed to retrieve exercise")
	}

	return utils.SendSuccess(c, "exercise retrieved", exercise)
}

func (h *ExerciseHandler) create(c *fiber.Ctx) error {
	var payload dto.ExerciseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exercise, err := h.service.Create(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err, "failed to create exercise")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exercise created", exercise)
}

func (h *ExerciseHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExerciseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exercise, err := h.service.Update(withRequestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update exercise")
	}

	return utils.SendSuccess(c, "exercise updated", exercise)
}

func (h *ExerciseHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(withRequestContext(c), id); err != nil {
		return h.handleError(c, err, "failed to delete exercise")
	}

	return utils.SendSuccess(c, "exercise deleted", nil)
}

func (h *ExerciseHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.Is(err, grader.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case errors.Is(err, service.ErrExerciseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exercise not found")
	case errors.Is(err, service.ErrExerciseInUse):
		return utils.SendError(c, fiber.StatusConflict, "exercise has attempts and cannot be deleted")
	case errors.Is(err, grader.ErrInvalidFunctionName),
		errors.Is(err, grader.ErrInvalidTestCases),
		errors.Is(err, service.ErrInvalidExercise):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
