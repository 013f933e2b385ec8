package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/models"
)

func newAssistantFixture(assistant *stubAssistant) AssistantService {
	exercise := sampleExercise()
	exercise.Difficulty = 3
	exercises := NewExerciseService(&stubExerciseRepo{exercises: []models.Exercise{exercise}}, nil, 0, validator.New(), zerolog.Nop())
	if assistant == nil {
		return NewAssistantService(exercises, nil, validator.New(), zerolog.Nop())
	}
	return NewAssistantService(exercises, assistant, validator.New(), zerolog.Nop())
}

func TestAssistantServiceHintPassesExerciseContext(t *testing.T) {
	assistant := &stubAssistant{text: "# handle negative numbers"}
	svc := newAssistantFixture(assistant)

	resp, err := svc.Hint(context.Background(), dto.HintRequest{ExerciseID: 1, Code: "def add(a, b): pass"})
	require.NoError(t, err)
	require.Equal(t, "# handle negative numbers", resp.Response)
	require.Equal(t, "python", assistant.hint.Language)
	require.Equal(t, "Add", assistant.hint.ExerciseName)
	require.Contains(t, assistant.hint.ReferenceSolution, "return a + b")
	require.Equal(t, "def add(a, b): pass", assistant.hint.Code)
}

func TestAssistantServiceRivalUsesDifficultyLabel(t *testing.T) {
	assistant := &stubAssistant{text: "def add(a, b):\n    return a - b"}
	svc := newAssistantFixture(assistant)

	_, err := svc.Rival(context.Background(), dto.RivalRequest{ExerciseID: 1})
	require.NoError(t, err)
	require.Equal(t, "medium", assistant.rival.Difficulty)
}

func TestAssistantServiceErrors(t *testing.T) {
	svc := newAssistantFixture(nil)
	_, err := svc.Hint(context.Background(), dto.HintRequest{ExerciseID: 1})
	require.ErrorIs(t, err, ErrAssistantUnavailable)
	_, err = svc.Rival(context.Background(), dto.RivalRequest{ExerciseID: 1})
	require.ErrorIs(t, err, ErrAssistantUnavailable)

	svc = newAssistantFixture(&stubAssistant{})
	_, err = svc.Rival(context.Background(), dto.RivalRequest{ExerciseID: 77})
	require.ErrorIs(t, err, ErrExerciseNotFound)

	failure := errors.New("upstream")
	svc = newAssistantFixture(&stubAssistant{err: failure})
	_, err = svc.Hint(context.Background(), dto.HintRequest{ExerciseID: 1})
	require.ErrorIs(t, err, failure)
}
