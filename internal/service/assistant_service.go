package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/pkg/ai"
)

// ErrAssistantUnavailable indicates no assistant backend is configured.
var ErrAssistantUnavailable = errors.New("assistant unavailable")

// AssistantService offers hints and rival solutions for exercises.
type AssistantService interface {
	Hint(ctx context.Context, payload dto.HintRequest) (dto.AssistantResponse, error)
	Rival(ctx context.Context, payload dto.RivalRequest) (dto.AssistantResponse, error)
}

type assistantService struct {
	exercises ExerciseService
	assistant ai.Assistant
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantService constructs the assistant service. assistant may be nil.
func NewAssistantService(exercises ExerciseService, assistant ai.Assistant, validate *validator.Validate, logger zerolog.Logger) AssistantService {
	return &assistantService{
		exercises: exercises,
		assistant: assistant,
		validator: validate,
		logger:    logger.With().Str("component", "assistant_service").Logger(),
	}
}

func (s *assistantService) Hint(ctx context.Context, payload dto.HintRequest) (dto.AssistantResponse, error) {
	if s.assistant == nil {
		return dto.AssistantResponse{}, ErrAssistantUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssistantResponse{}, err
	}

	exercise, err := s.exercises.Load(ctx, payload.ExerciseID)
	if err != nil {
		return dto.AssistantResponse{}, err
	}

	text, err := s.assistant.Hint(ctx, ai.HintInput{
		Language:          exercise.Language,
		ExerciseName:      exercise.Name,
		Description:       exercise.Description,
		ReferenceSolution: exercise.ReferenceSolution,
		Code:              payload.Code,
	})
	if err != nil {
		return dto.AssistantResponse{}, err
	}

	return dto.AssistantResponse{Response: text}, nil
}

func (s *assistantService) Rival(ctx context.Context, payload dto.RivalRequest) (dto.AssistantResponse, error) {
	if s.assistant == nil {
		return dto.AssistantResponse{}, ErrAssistantUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssistantResponse{}, err
	}

	exercise, err := s.exercises.Load(ctx, payload.ExerciseID)
	if err != nil {
		return dto.AssistantResponse{}, err
	}

	text, err := s.assistant.Rival(ctx, ai.RivalInput{
		Language:     exercise.Language,
		ExerciseName: exercise.Name,
		Description:  exercise.Description,
		Difficulty:   exercise.DifficultyLabel(),
	})
	if err != nil {
		return dto.AssistantResponse{}, err
	}

	return dto.AssistantResponse{Response: text}, nil
}
