package models

import "time"

// Exercise is one unlockable unit of a course. Order is 1-based and, by
// convention of the seed data, unique and contiguous within a course.
type Exercise struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CourseID    string    `json:"course_id" gorm:"index;type:varchar(36);not null"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order" gorm:"column:order;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
