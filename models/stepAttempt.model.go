package models

import "time"

// StepAttempt is an append-only log of submitted answers.
type StepAttempt struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	ExerciseID    string    `json:"exercise_id" gorm:"index;type:varchar(36);not null"`
	StepID        string    `json:"step_id" gorm:"index;type:varchar(36);not null"`
	Answer        string    `json:"answer"`
	IsCorrect     bool      `json:"is_correct" gorm:"default:false"`
	AttemptNumber int       `json:"attempt_number" gorm:"default:1"`
	CreatedAt     time.Time `json:"created_at"`
}
