package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/internal/repository"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

// ErrAttemptNotFound indicates the attempt cannot be located.
var ErrAttemptNotFound = errors.New("attempt not found")

// ErrAttemptForbidden indicates the caller does not own the attempt.
var ErrAttemptForbidden = errors.New("forbidden")

const maxListedAttempts = 100

// Grader grades one submission.
type Grader interface {
	Grade(ctx context.Context, sub grader.Submission) (grader.Result, error)
}

// AttemptService exposes attempt submission and history.
type AttemptService interface {
	Submit(ctx context.Context, userID uint, payload dto.AttemptRequest) (dto.AttemptResponse, error)
	Get(ctx context.Context, id uint, viewerID uint) (dto.AttemptDetailResponse, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]dto.AttemptDetailResponse, error)
}

type attemptService struct {
	attempts  repository.AttemptRepository
	exercises ExerciseService
	grader    Grader
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAttemptService constructs the attempt service. events may be nil.
func NewAttemptService(attempts repository.AttemptRepository, exercises ExerciseService, g Grader, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) AttemptService {
	return &attemptService{
		attempts:  attempts,
		exercises: exercises,
		grader:    g,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// Submit records the attempt, grades it and stores the verdict. The exercise's
// grading configuration is checked before anything is persisted.
func (s *attemptService) Submit(ctx context.Context, userID uint, payload dto.AttemptRequest) (dto.AttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResponse{}, err
	}

	exercise, err := s.exercises.Load(ctx, payload.ExerciseID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	submission, err := submissionFor(exercise, payload.Code)
	if err != nil {
		s.logger.Error().Err(err).Uint("exercise_id", exercise.ID).Msg("exercise has an unusable grading configuration")
		return dto.AttemptResponse{}, err
	}

	attempt := models.Attempt{
		UserID:        userID,
		ExerciseID:    exercise.ID,
		CodeSubmitted: payload.Code,
		AttemptedAt:   s.now().UTC(),
	}
	if err := s.attempts.Create(ctx, &attempt); err != nil {
		return dto.AttemptResponse{}, err
	}

	result, err := s.grader.Grade(ctx, submission)
	if err != nil {
		s.logger.Error().Err(err).Uint("attempt_id", attempt.ID).Msg("grading failed")
		return dto.AttemptResponse{}, err
	}

	attempt.Score = result.StyleScore
	attempt.Stars = result.Stars
	attempt.TestsPassed = result.TestsPassed
	attempt.TestsTotal = result.TestsTotal
	attempt.TestPassRate = result.TestPassRate
	attempt.Feedback = result.Feedback
	if err := s.attempts.SaveGrade(ctx, &attempt); err != nil {
		return dto.AttemptResponse{}, err
	}

	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Uint("exercise_id", exercise.ID).
		Int("stars", result.Stars).
		Bool("timed_out", result.TimedOut).
		Msg("attempt graded")

	if s.events != nil {
		event := dto.AttemptGradedEvent{
			AttemptID:    attempt.ID,
			UserID:       attempt.UserID,
			ExerciseID:   attempt.ExerciseID,
			Stars:        attempt.Stars,
			StyleScore:   attempt.Score,
			TestPassRate: attempt.TestPassRate,
			GradedAt:     s.now().UTC(),
		}
		if err := s.events.PublishAttemptGraded(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to publish attempt event")
		}
	}

	return dto.NewAttemptResponse(attempt, result), nil
}

func (s *attemptService) Get(ctx context.Context, id uint, viewerID uint) (dto.AttemptDetailResponse, error) {
	attempt, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptDetailResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptDetailResponse{}, err
	}

	owner := viewerID != 0 && viewerID == attempt.UserID
	return dto.NewAttemptDetailResponse(attempt, owner), nil
}

func (s *attemptService) ListByUser(ctx context.Context, userID uint, limit int) ([]dto.AttemptDetailResponse, error) {
	if userID == 0 {
		return nil, ErrAttemptForbidden
	}
	if limit <= 0 || limit > maxListedAttempts {
		limit = maxListedAttempts
	}

	attempts, err := s.attempts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewAttemptDetailSlice(attempts), nil
}

func submissionFor(exercise models.Exercise, code string) (grader.Submission, error) {
	lang, err := grader.ParseLanguage(exercise.Language)
	if err != nil {
		return grader.Submission{}, err
	}
	if err := grader.ValidateFunctionName(lang, exercise.FunctionName); err != nil {
		return grader.Submission{}, err
	}
	cases, err := grader.DecodeTestCases(exercise.TestCases)
	if err != nil {
		return grader.Submission{}, err
	}

	return grader.Submission{
		Code:         code,
		Language:     lang,
		FunctionName: exercise.FunctionName,
		TestCases:    cases,
	}, nil
}
