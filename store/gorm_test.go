package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"prolific/logger"
	"prolific/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second pooled connection would see a different in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Topic{}, &models.Course{}, &models.Exercise{}, &models.Step{},
		&models.AudioAsset{}, &models.UserProgress{}, &models.StepAttempt{}, &models.UserPreferences{},
	))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Topic{ID: "t1", Title: "Money"}).Error)
	require.NoError(t, db.Create(&models.Course{ID: "c1", TopicID: "t1", Title: "Budgeting"}).Error)
	exercises := []models.Exercise{
		{ID: "ex3", CourseID: "c1", Title: "Three", Order: 3},
		{ID: "ex1", CourseID: "c1", Title: "One", Order: 1},
		{ID: "ex2", CourseID: "c1", Title: "Two", Order: 2},
	}
	require.NoError(t, db.Create(&exercises).Error)
	audio := "a1"
	steps := []models.Step{
		{ID: "s2", ExerciseID: "ex1", Type: models.StepTrueFalse, Content: "Q", CorrectAnswer: "True", Order: 2, Options: []string{"True", "False"}},
		{ID: "s1", ExerciseID: "ex1", Type: models.StepContent, Content: "Intro", Order: 1, AudioID: &audio},
	}
	require.NoError(t, db.Create(&steps).Error)
	require.NoError(t, db.Create(&models.AudioAsset{ID: "a1", Title: "Intro", URL: "https://cdn.example/a1.mp3", DurationSeconds: 12}).Error)
}

func TestGormStoreCatalog(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	s := NewGormStore(db, logger.Nop())
	ctx := context.Background()

	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1)

	courses, err := s.ListCoursesByTopic(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Budgeting", courses[0].Title)

	exercises, err := s.ListExercisesByCourse(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, exercises, 3)
	assert.Equal(t, []string{"ex1", "ex2", "ex3"}, []string{exercises[0].ID, exercises[1].ID, exercises[2].ID})

	st, err := s.ListStepsByExercise(ctx, "ex1")
	require.NoError(t, err)
	require.Len(t, st, 2)
	assert.Equal(t, "s1", st[0].ID)
	assert.Equal(t, []string{"True", "False"}, []string(st[1].Options))

	audio, err := s.ListAudioAssets(ctx, []string{"a1", "missing"})
	require.NoError(t, err)
	require.Len(t, audio, 1)
	assert.Equal(t, 12, audio[0].DurationSeconds)
}

func TestGormStoreNotFound(t *testing.T) {
	s := NewGormStore(newTestDB(t), logger.Nop())
	ctx := context.Background()

	_, err := s.GetCourse(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetExercise(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPreferences(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreUpsertProgressKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	s := NewGormStore(db, logger.Nop())
	ctx := context.Background()

	row := &models.UserProgress{ID: "p1", UserID: "u1", ExerciseID: "ex1", IsUnlocked: true}
	require.NoError(t, s.UpsertProgress(ctx, row))
	require.NoError(t, s.UpsertProgress(ctx, &models.UserProgress{ID: "p1", UserID: "u1", ExerciseID: "ex1", ScorePercentage: 100, IsUnlocked: true}))
	require.NoError(t, s.UpsertProgress(ctx, &models.UserProgress{ID: "p1", UserID: "u1", ExerciseID: "ex1", ScorePercentage: 40, IsUnlocked: true}))

	rows, err := s.ListProgress(ctx, "u1", []string{"ex1", "ex2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 40, rows[0].ScorePercentage)
	assert.True(t, rows[0].IsUnlocked)

	other, err := s.ListProgress(ctx, "u2", []string{"ex1"})
	require.NoError(t, err)
	assert.Empty(t, other)

	assert.Error(t, s.UpsertProgress(ctx, &models.UserProgress{UserID: "u1"}))
}

func TestGormStoreAttempts(t *testing.T) {
	s := NewGormStore(newTestDB(t), logger.Nop())
	ctx := context.Background()

	for i, id := range []string{"a1", "a2"} {
		require.NoError(t, s.CreateAttempt(ctx, &models.StepAttempt{
			ID: id, UserID: "u1", ExerciseID: "ex1", StepID: "s2", Answer: "false", AttemptNumber: i + 1,
		}))
	}
	n, err := s.CountAttempts(ctx, "u1", "s2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountAttempts(ctx, "u2", "s2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormStorePreferencesStoreZeroValues(t *testing.T) {
	s := NewGormStore(newTestDB(t), logger.Nop())
	ctx := context.Background()

	prefs := models.DefaultPreferences("u1")
	prefs.RemindersEnabled = true
	require.NoError(t, s.UpsertPreferences(ctx, &prefs))

	prefs.SoundEnabled = false
	prefs.RemindersEnabled = false
	prefs.ReminderHour = 0
	require.NoError(t, s.UpsertPreferences(ctx, &prefs))

	got, err := s.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.SoundEnabled)
	assert.False(t, got.RemindersEnabled)
	assert.Equal(t, 0, got.ReminderHour)
	assert.Equal(t, 1, got.DailyGoal)
}
