package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/internal/repository"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

// ErrExerciseNotFound indicates the requested exercise does not exist.
var ErrExerciseNotFound = errors.New("exercise not found")

// ErrExerciseInUse indicates an exercise that cannot be removed because attempts reference it.
var ErrExerciseInUse = repository.ErrExerciseInUse

// ErrInvalidExercise indicates an exercise payload that passed struct validation but is unusable.
var ErrInvalidExercise = errors.New("invalid exercise")

// ExerciseService exposes use cases related to exercises.
type ExerciseService interface {
	List(ctx context.Context, filter dto.ExerciseFilter) (dto.ExerciseListResponse, error)
	Get(ctx context.Context, id uint) (dto.ExerciseResponse, error)
	Load(ctx context.Context, id uint) (models.Exercise, error)
	Create(ctx context.Context, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error)
	Update(ctx context.Context, id uint, payload dto.ExerciseUpdateRequest) (dto.ExerciseResponse, error)
	Delete(ctx context.Context, id uint) error
}

type exerciseService struct {
	repo      repository.ExerciseRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewExerciseService builds a new exercise service. cache may be nil.
func NewExerciseService(repo repository.ExerciseRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) ExerciseService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &exerciseService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  ttl,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "exercise_service").Logger(),
	}
}

func (s *exerciseService) List(ctx context.Context, filter dto.ExerciseFilter) (dto.ExerciseListResponse, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := repository.ExerciseQuery{
		Language:   strings.ToLower(strings.TrimSpace(filter.Language)),
		Difficulty: filter.Difficulty,
		Search:     strings.TrimSpace(filter.Search),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}
	if query.Language != "" {
		if lang, err := grader.ParseLanguage(query.Language); err == nil {
			query.Language = string(lang)
		}
	}

	exercises, total, err := s.repo.List(ctx, query)
	if err != nil {
		return dto.ExerciseListResponse{}, err
	}

	pagination := dto.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: int(total),
	}

	return dto.NewExerciseListResponse(exercises, pagination), nil
}

func (s *exerciseService) Get(ctx context.Context, id uint) (dto.ExerciseResponse, error) {
	exercise, err := s.Load(ctx, id)
	if err != nil {
		return dto.ExerciseResponse{}, err
	}
	return dto.NewExerciseResponse(exercise, true), nil
}

// Load returns the stored exercise, reading through the redis cache.
func (s *exerciseService) Load(ctx context.Context, id uint) (models.Exercise, error) {
	cacheKey := exerciseCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var exercise models.Exercise
			if unmarshalErr := json.Unmarshal(cached, &exercise); unmarshalErr == nil {
				s.logger.Debug().Uint("exercise_id", id).Msg("exercise cache hit")
				return exercise, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read exercise cache")
		}
	}

	exercise, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exercise{}, ErrExerciseNotFound
		}
		return models.Exercise{}, err
	}

	s.store(ctx, exercise)
	return exercise, nil
}

// Create validates the grading configuration up front so a stored exercise can always be graded.
func (s *exerciseService) Create(ctx context.Context, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseResponse{}, err
	}

	lang, err := grader.ParseLanguage(payload.Language)
	if err != nil {
		return dto.ExerciseResponse{}, err
	}

	functionName := strings.TrimSpace(payload.FunctionName)
	if err := grader.ValidateFunctionName(lang, functionName); err != nil {
		return dto.ExerciseResponse{}, err
	}

	if _, err := grader.DecodeTestCases(payload.TestCases); err != nil {
		return dto.ExerciseResponse{}, err
	}

	exercise := models.Exercise{
		Name:              s.plainText(payload.Name),
		Description:       s.plainText(payload.Description),
		Difficulty:        payload.Difficulty,
		StarterCode:       payload.StarterCode,
		Language:          string(lang),
		FunctionName:      functionName,
		TestCases:         datatypes.JSON(payload.TestCases),
		ReferenceSolution: payload.ReferenceSolution,
	}
	if exercise.Name == "" || exercise.Description == "" {
		return dto.ExerciseResponse{}, fmt.Errorf("%w: name and description must contain text", ErrInvalidExercise)
	}

	if err := s.repo.Create(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	s.store(ctx, exercise)
	s.logger.Info().Uint("exercise_id", exercise.ID).Str("language", exercise.Language).Msg("exercise created")

	return dto.NewExerciseResponse(exercise, true), nil
}

// Update applies the present fields and re-checks the grading configuration
// against the merged exercise before saving.
func (s *exerciseService) Update(ctx context.Context, id uint, payload dto.ExerciseUpdateRequest) (dto.ExerciseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseResponse{}, err
	}

	exercise, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExerciseResponse{}, ErrExerciseNotFound
		}
		return dto.ExerciseResponse{}, err
	}

	if payload.Name != nil {
		exercise.Name = s.plainText(*payload.Name)
	}
	if payload.Description != nil {
		exercise.Description = s.plainText(*payload.Description)
	}
	if payload.Difficulty != nil {
		exercise.Difficulty = *payload.Difficulty
	}
	if payload.StarterCode != nil {
		exercise.StarterCode = *payload.StarterCode
	}
	if payload.Language != nil {
		exercise.Language = *payload.Language
	}
	if payload.FunctionName != nil {
		exercise.FunctionName = strings.TrimSpace(*payload.FunctionName)
	}
	if len(payload.TestCases) > 0 {
		exercise.TestCases = datatypes.JSON(payload.TestCases)
	}
	if payload.ReferenceSolution != nil {
		exercise.ReferenceSolution = *payload.ReferenceSolution
	}

	lang, err := grader.ParseLanguage(exercise.Language)
	if err != nil {
		return dto.ExerciseResponse{}, err
	}
	exercise.Language = string(lang)
	if err := grader.ValidateFunctionName(lang, exercise.FunctionName); err != nil {
		return dto.ExerciseResponse{}, err
	}
	if _, err := grader.DecodeTestCases(exercise.TestCases); err != nil {
		return dto.ExerciseResponse{}, err
	}
	if exercise.Name == "" || exercise.Description == "" {
		return dto.ExerciseResponse{}, fmt.Errorf("%w: name and description must contain text", ErrInvalidExercise)
	}

	if err := s.repo.Update(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	s.evict(ctx, id)
	s.logger.Info().Uint("exercise_id", id).Msg("exercise updated")

	return dto.NewExerciseResponse(exercise, true), nil
}

func (s *exerciseService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}

	s.evict(ctx, id)
	s.logger.Info().Uint("exercise_id", id).Msg("exercise deleted")
	return nil
}

func (s *exerciseService) evict(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, exerciseCacheKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("exercise_id", id).Msg("failed to evict exercise cache")
	}
}

func (s *exerciseService) plainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *exerciseService) store(ctx context.Context, exercise models.Exercise) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(exercise)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, exerciseCacheKey(exercise.ID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store exercise cache")
	}
}

func exerciseCacheKey(id uint) string {
	return fmt.Sprintf("exercise:%d", id)
}
