package dto

import (
	"time"

	"github.com/noah-isme/codesnap-api/internal/models"
	"github.com/noah-isme/codesnap-api/pkg/grader"
)

// AttemptRequest is the payload for submitting code against an exercise.
type AttemptRequest struct {
	ExerciseID uint   `json:"exercise_id" validate:"required,gt=0"`
	Code       string `json:"code" validate:"required,max=65536"`
}

// AttemptResponse is the graded verdict returned after a submission.
type AttemptResponse struct {
	AttemptID    uint                 `json:"attempt_id"`
	ExerciseID   uint                 `json:"exercise_id"`
	Stars        int                  `json:"stars"`
	StyleScore   float64              `json:"style_score"`
	TestPassRate float64              `json:"test_pass_rate"`
	TestsPassed  int                  `json:"tests_passed"`
	TestsTotal   int                  `json:"tests_total"`
	Feedback     string               `json:"feedback"`
	TimedOut     bool                 `json:"timed_out"`
	Tests        []grader.TestOutcome `json:"tests,omitempty"`
}

// AttemptDetailResponse describes a stored attempt.
type AttemptDetailResponse struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	ExerciseID    uint      `json:"exercise_id"`
	ExerciseName  string    `json:"exercise_name,omitempty"`
	CodeSubmitted string    `json:"code_submitted,omitempty"`
	Score         float64   `json:"score"`
	Stars         int       `json:"stars"`
	TestsPassed   int       `json:"tests_passed"`
	TestsTotal    int       `json:"tests_total"`
	TestPassRate  float64   `json:"test_pass_rate"`
	Feedback      string    `json:"feedback,omitempty"`
	Graded        bool      `json:"graded"`
	AttemptedAt   time.Time `json:"attempted_at"`
}

// NewAttemptResponse combines the stored attempt with the grading result.
func NewAttemptResponse(attempt models.Attempt, result grader.Result) AttemptResponse {
	return AttemptResponse{
		AttemptID:    attempt.ID,
		ExerciseID:   attempt.ExerciseID,
		Stars:        result.Stars,
		StyleScore:   result.StyleScore,
		TestPassRate: result.TestPassRate,
		TestsPassed:  result.TestsPassed,
		TestsTotal:   result.TestsTotal,
		Feedback:     result.Feedback,
		TimedOut:     result.TimedOut,
		Tests:        result.Tests,
	}
}

// NewAttemptDetailResponse builds a detail DTO; code and lint feedback are only
// included for the owner.
func NewAttemptDetailResponse(attempt models.Attempt, includeCode bool) AttemptDetailResponse {
	response := AttemptDetailResponse{
		ID:           attempt.ID,
		UserID:       attempt.UserID,
		ExerciseID:   attempt.ExerciseID,
		ExerciseName: attempt.Exercise.Name,
		Score:        attempt.Score,
		Stars:        attempt.Stars,
		TestsPassed:  attempt.TestsPassed,
		TestsTotal:   attempt.TestsTotal,
		TestPassRate: attempt.TestPassRate,
		Graded:       attempt.Graded,
		AttemptedAt:  attempt.AttemptedAt,
	}

	if includeCode {
		response.CodeSubmitted = attempt.CodeSubmitted
		response.Feedback = attempt.Feedback
	}

	return response
}

// NewAttemptDetailSlice converts attempts owned by the viewer.
func NewAttemptDetailSlice(attempts []models.Attempt) []AttemptDetailResponse {
	items := make([]AttemptDetailResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, NewAttemptDetailResponse(attempt, true))
	}
	return items
}

// AttemptGradedEvent is published once an attempt has been graded.
type AttemptGradedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	UserID       uint      `json:"user_id"`
	ExerciseID   uint      `json:"exercise_id"`
	Stars        int       `json:"stars"`
	StyleScore   float64   `json:"style_score"`
	TestPassRate float64   `json:"test_pass_rate"`
	GradedAt     time.Time `json:"graded_at"`
}
