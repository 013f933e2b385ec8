package service

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/internal/repository"
	"github.com/noah-isme/codesnap-api/pkg/ai"
	"github.com/noah-isme/codesnap-api/pkg/grader"
	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

type stubExerciseRepo struct {
	exercises []models.Exercise
	err       error
	gets      int
	last      repository.ExerciseQuery
}

func (s *stubExerciseRepo) List(ctx context.Context, query repository.ExerciseQuery) ([]models.Exercise, int64, error) {
	s.last = query
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.exercises, int64(len(s.exercises)), nil
}

func (s *stubExerciseRepo) GetByID(ctx context.Context, id uint) (models.Exercise, error) {
	s.gets++
	if s.err != nil {
		return models.Exercise{}, s.err
	}
	for _, exercise := range s.exercises {
		if exercise.ID == id {
			return exercise, nil
		}
	}
	return models.Exercise{}, gorm.ErrRecordNotFound
}

func (s *stubExerciseRepo) Create(ctx context.Context, exercise *models.Exercise) error {
	if s.err != nil {
		return s.err
	}
	exercise.ID = uint(len(s.exercises) + 1)
	s.exercises = append(s.exercises, *exercise)
	return nil
}

func (s *stubExerciseRepo) Update(ctx context.Context, exercise *models.Exercise) error {
	if s.err != nil {
		return s.err
	}
	for i := range s.exercises {
		if s.exercises[i].ID == exercise.ID {
			s.exercises[i] = *exercise
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubExerciseRepo) Delete(ctx context.Context, id uint) error {
	if s.err != nil {
		return s.err
	}
	for i := range s.exercises {
		if s.exercises[i].ID == id {
			s.exercises = append(s.exercises[:i], s.exercises[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubAttemptRepo struct {
	created []models.Attempt
	graded  []models.Attempt
	stored  map[uint]models.Attempt
	err     error
}

func (s *stubAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	if s.err != nil {
		return s.err
	}
	attempt.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *attempt)
	if s.stored == nil {
		s.stored = map[uint]models.Attempt{}
	}
	s.stored[attempt.ID] = *attempt
	return nil
}

func (s *stubAttemptRepo) SaveGrade(ctx context.Context, attempt *models.Attempt) error {
	if s.err != nil {
		return s.err
	}
	attempt.Graded = true
	s.graded = append(s.graded, *attempt)
	s.stored[attempt.ID] = *attempt
	return nil
}

func (s *stubAttemptRepo) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	if attempt, ok := s.stored[id]; ok {
		return attempt, nil
	}
	return models.Attempt{}, gorm.ErrRecordNotFound
}

func (s *stubAttemptRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Attempt, error) {
	var attempts []models.Attempt
	for _, attempt := range s.created {
		if attempt.UserID == userID {
			attempts = append(attempts, attempt)
		}
	}
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

type stubGrader struct {
	result     grader.Result
	err        error
	submission grader.Submission
	calls      int
}

func (s *stubGrader) Grade(ctx context.Context, sub grader.Submission) (grader.Result, error) {
	s.calls++
	s.submission = sub
	return s.result, s.err
}

type stubPublisher struct {
	events []dto.AttemptGradedEvent
	err    error
}

func (s *stubPublisher) PublishAttemptGraded(ctx context.Context, event dto.AttemptGradedEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubAssistant struct {
	hint  ai.HintInput
	rival ai.RivalInput
	text  string
	err   error
}

func (s *stubAssistant) Hint(ctx context.Context, input ai.HintInput) (string, error) {
	s.hint = input
	return s.text, s.err
}

func (s *stubAssistant) Rival(ctx context.Context, input ai.RivalInput) (string, error) {
	s.rival = input
	return s.text, s.err
}

type stubRunner struct {
	mu       sync.Mutex
	result   sandbox.Result
	err      error
	commands []sandbox.Command
}

func (s *stubRunner) Run(ctx context.Context, cmd sandbox.Command) (sandbox.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return s.result, s.err
}
