package models

import (
	"time"

	"gorm.io/datatypes"
)

// Exercise is a coding challenge graded by running its test cases against a named function.
type Exercise struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"size:200;not null" json:"name"`
	Description       string         `gorm:"type:text;not null" json:"description"`
	Difficulty        int            `gorm:"not null;default:1" json:"difficulty"`
	StarterCode       string         `gorm:"type:text;not null" json:"starter_code"`
	Language          string         `gorm:"size:50;not null;index" json:"language"`
	FunctionName      string         `gorm:"size:100;not null" json:"function_name"`
	TestCases         datatypes.JSON `gorm:"not null" json:"test_cases"`
	ReferenceSolution string         `gorm:"type:text" json:"reference_solution"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// DifficultyLabel buckets the 1-5 difficulty into easy, medium and hard.
func (e Exercise) DifficultyLabel() string {
	switch {
	case e.Difficulty <= 2:
		return "easy"
	case e.Difficulty == 3:
		return "medium"
	default:
		return "hard"
	}
}
