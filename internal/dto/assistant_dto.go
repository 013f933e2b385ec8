package dto

// HintRequest asks for the next step on an exercise given the current code.
type HintRequest struct {
	ExerciseID uint   `json:"exercise_id" validate:"required,gt=0"`
	Code       string `json:"code" validate:"max=65536"`
}

// RivalRequest asks for a competitor solution to an exercise.
type RivalRequest struct {
	ExerciseID uint `json:"exercise_id" validate:"required,gt=0"`
}

// AssistantResponse is the text produced by the assistant.
type AssistantResponse struct {
	Response string `json:"response"`
}
