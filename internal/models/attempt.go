package models

import "time"

// Attempt records one graded submission. It is created before grading and
// updated once with the verdict; attempts are never deleted.
type Attempt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	ExerciseID    uint      `gorm:"not null;index" json:"exercise_id"`
	CodeSubmitted string    `gorm:"type:text;not null" json:"code_submitted"`
	Score         float64   `gorm:"not null;default:0" json:"score"`
	Stars         int       `gorm:"not null;default:0" json:"stars"`
	TestsPassed   int       `gorm:"not null;default:0" json:"tests_passed"`
	TestsTotal    int       `gorm:"not null;default:0" json:"tests_total"`
	TestPassRate  float64   `gorm:"not null;default:0" json:"test_pass_rate"`
	Feedback      string    `gorm:"type:text" json:"feedback"`
	Graded        bool      `gorm:"not null;default:false" json:"graded"`
	AttemptedAt   time.Time `gorm:"not null" json:"attempted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Exercise      Exercise  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}
