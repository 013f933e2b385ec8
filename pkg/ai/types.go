package ai

import "context"

// HintInput carries the exercise context and the user's current code.
type HintInput struct {
	Language          string
	ExerciseName      string
	Description       string
	ReferenceSolution string
	Code              string
}

// RivalInput carries the exercise context for a competitor solution.
type RivalInput struct {
	Language     string
	ExerciseName string
	Description  string
	Difficulty   string
}

// Assistant produces coaching text for exercises.
type Assistant interface {
	Hint(ctx context.Context, input HintInput) (string, error)
	Rival(ctx context.Context, input RivalInput) (string, error)
}
