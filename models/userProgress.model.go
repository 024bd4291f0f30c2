package models

import "time"

// UserProgress records a learner's state for one exercise. There is at most
// one row per (UserID, ExerciseID); writers look up the existing row id
// before upserting.
type UserProgress struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string    `json:"user_id" gorm:"index:idx_progress_user_exercise;type:varchar(36);not null"`
	ExerciseID      string    `json:"exercise_id" gorm:"index:idx_progress_user_exercise;type:varchar(36);not null"`
	ScorePercentage int       `json:"score_percentage" gorm:"default:0"` // 0-100
	IsUnlocked      bool      `json:"is_unlocked" gorm:"default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }
