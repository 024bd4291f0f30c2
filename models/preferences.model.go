package models

import "time"

type UserPreferences struct {
	UserID           string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	DailyGoal        int       `json:"daily_goal"` // exercises per day
	RemindersEnabled bool      `json:"reminders_enabled"`
	ReminderHour     int       `json:"reminder_hour"`
	SoundEnabled     bool      `json:"sound_enabled"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultPreferences is what a learner gets before saving anything.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:       userID,
		DailyGoal:    1,
		ReminderHour: 18,
		SoundEnabled: true,
	}
}
