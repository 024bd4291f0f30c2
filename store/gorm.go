package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prolific/logger"
	"prolific/models"
)

// GormStore is the Content Store over a local SQL database.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) *GormStore {
	return &GormStore{db: db, log: baseLog.With("store", "GormStore")}
}

// "order" is a reserved word, so it is always passed as a quoted column.
var orderColumn = clause.Column{Name: "order"}

func byOrder() clause.OrderByColumn {
	return clause.OrderByColumn{Column: orderColumn}
}

func (s *GormStore) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var out []models.Topic
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListCoursesByTopic(ctx context.Context, topicID string) ([]models.Course, error) {
	var out []models.Course
	if err := s.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("title ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var c models.Course
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	var e models.Exercise
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) ListExercisesByCourse(ctx context.Context, courseID string) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(byOrder()).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListStepsByExercise(ctx context.Context, exerciseID string) ([]models.Step, error) {
	var out []models.Step
	if err := s.db.WithContext(ctx).
		Where("exercise_id = ?", exerciseID).
		Order(byOrder()).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListAudioAssets(ctx context.Context, ids []string) ([]models.AudioAsset, error) {
	var out []models.AudioAsset
	if len(ids) == 0 {
		return out, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListProgress(ctx context.Context, userID string, exerciseIDs []string) ([]models.UserProgress, error) {
	var out []models.UserProgress
	if len(exerciseIDs) == 0 {
		return out, nil
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND exercise_id IN ?", userID, exerciseIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertProgress inserts or updates the row identified by row.ID.
func (s *GormStore) UpsertProgress(ctx context.Context, row *models.UserProgress) error {
	if row == nil || row.ID == "" {
		return errors.New("upsert progress: missing id")
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "exercise_id", "score_percentage", "is_unlocked", "updated_at"}),
		}).
		Create(row).Error
}

func (s *GormStore) CreateAttempt(ctx context.Context, row *models.StepAttempt) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GormStore) CountAttempts(ctx context.Context, userID, stepID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.StepAttempt{}).
		Where("user_id = ? AND step_id = ?", userID, stepID).
		Count(&n).Error
	return n, err
}

func (s *GormStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var p models.UserPreferences
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) UpsertPreferences(ctx context.Context, prefs *models.UserPreferences) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"daily_goal", "reminders_enabled", "reminder_hour", "sound_enabled", "updated_at"}),
		}).
		Create(prefs).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
