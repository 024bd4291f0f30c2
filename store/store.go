// Package store provides the Content Store: catalog reads, progress rows,
// answer attempts and learner preferences, over either a local SQL database
// or the managed backend's REST API.
package store

import (
	"context"
	"errors"

	"prolific/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Catalog is the read-only content authored outside this system.
type Catalog interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	ListCoursesByTopic(ctx context.Context, topicID string) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)
	ListExercisesByCourse(ctx context.Context, courseID string) ([]models.Exercise, error)
	ListStepsByExercise(ctx context.Context, exerciseID string) ([]models.Step, error)
	ListAudioAssets(ctx context.Context, ids []string) ([]models.AudioAsset, error)
}

// Learner holds per-user mutable rows.
type Learner interface {
	ListProgress(ctx context.Context, userID string, exerciseIDs []string) ([]models.UserProgress, error)
	UpsertProgress(ctx context.Context, row *models.UserProgress) error
	CreateAttempt(ctx context.Context, row *models.StepAttempt) error
	CountAttempts(ctx context.Context, userID, stepID string) (int64, error)
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.UserPreferences) error
}

// ContentStore is everything the API needs from the backend.
type ContentStore interface {
	Catalog
	Learner
}
