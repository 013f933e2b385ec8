package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/codesnap-api/internal/models"
)

// ExerciseFilter defines query parameters for listing exercises.
type ExerciseFilter struct {
	Language   string `query:"language"`
	Difficulty int    `query:"difficulty"`
	Search     string `query:"search"`
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
}

// ExerciseCreateRequest is the payload for registering a new exercise.
type ExerciseCreateRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"required"`
	Difficulty        int             `json:"difficulty" validate:"required,min=1,max=5"`
	StarterCode       string          `json:"starter_code" validate:"required"`
	Language          string          `json:"language" validate:"required"`
	FunctionName      string          `json:"function_name" validate:"required,max=100"`
	TestCases         json.RawMessage `json:"test_cases" validate:"required"`
	ReferenceSolution string          `json:"reference_solution"`
}

// ExerciseUpdateRequest changes the fields that are present in the payload.
type ExerciseUpdateRequest struct {
	Name              *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string         `json:"description" validate:"omitempty,min=1"`
	Difficulty        *int            `json:"difficulty" validate:"omitempty,min=1,max=5"`
	StarterCode       *string         `json:"starter_code"`
	Language          *string         `json:"language"`
	FunctionName      *string         `json:"function_name" validate:"omitempty,max=100"`
	TestCases         json.RawMessage `json:"test_cases"`
	ReferenceSolution *string         `json:"reference_solution"`
}

// ExerciseResponse represents an exercise returned by the API.
type ExerciseResponse struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Difficulty        int             `json:"difficulty"`
	StarterCode       string          `json:"starter_code"`
	Language          string          `json:"language"`
	FunctionName      string          `json:"function_name"`
	TestCases         json.RawMessage `json:"test_cases,omitempty"`
	ReferenceSolution string          `json:"reference_solution,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ExerciseListResponse wraps exercises and pagination metadata.
type ExerciseListResponse struct {
	Items      []ExerciseResponse `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// NewExerciseResponse builds a response DTO. List views leave out test cases
// and the reference solution.
func NewExerciseResponse(exercise models.Exercise, detailed bool) ExerciseResponse {
	response := ExerciseResponse{
		ID:           exercise.ID,
		Name:         exercise.Name,
		Description:  exercise.Description,
		Difficulty:   exercise.Difficulty,
		StarterCode:  exercise.StarterCode,
		Language:     exercise.Language,
		FunctionName: exercise.FunctionName,
		CreatedAt:    exercise.CreatedAt,
	}

	if detailed {
		response.TestCases = json.RawMessage(exercise.TestCases)
		response.ReferenceSolution = exercise.ReferenceSolution
	}

	return response
}

// NewExerciseListResponse builds a list response from models and pagination meta.
func NewExerciseListResponse(exercises []models.Exercise, pagination Pagination) ExerciseListResponse {
	items := make([]ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		items = append(items, NewExerciseResponse(exercise, false))
	}

	return ExerciseListResponse{
		Items:      items,
		Pagination: pagination,
	}
}
