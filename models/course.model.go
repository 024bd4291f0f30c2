package models

import "time"

// Course belongs to exactly one Topic.
type Course struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TopicID     string    `json:"topic_id" gorm:"index;type:varchar(36);not null"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
