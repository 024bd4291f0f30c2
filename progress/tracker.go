// Package progress decides which exercises of a course a learner may enter
// and records exercise completion.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"prolific/logger"
	"prolific/models"
	"prolific/store"
)

// Store is the part of the Content Store the tracker reads and writes.
type Store interface {
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)
	ListExercisesByCourse(ctx context.Context, courseID string) ([]models.Exercise, error)
	ListProgress(ctx context.Context, userID string, exerciseIDs []string) ([]models.UserProgress, error)
	UpsertProgress(ctx context.Context, row *models.UserProgress) error
}

// IDGenerator supplies ids for new progress rows.
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Snapshot is one course's exercises and the learner's rows for them.
type Snapshot struct {
	Exercises []models.Exercise
	Progress  map[string]models.UserProgress
}

func (s *Snapshot) IsUnlocked(e models.Exercise) bool {
	return IsUnlocked(e, s.Progress, s.Exercises)
}

// ExerciseStatus is the per-exercise view returned to clients.
type ExerciseStatus struct {
	Exercise        models.Exercise `json:"exercise"`
	Status          Status          `json:"status"`
	IsUnlocked      bool            `json:"is_unlocked"`
	ScorePercentage int             `json:"score_percentage"`
}

// Summarize lists every exercise of the snapshot in order with its status.
func (s *Snapshot) Summarize() []ExerciseStatus {
	out := make([]ExerciseStatus, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		row := s.Progress[e.ID]
		out = append(out, ExerciseStatus{
			Exercise:        e,
			Status:          StatusOf(e, s.Progress, s.Exercises),
			IsUnlocked:      IsUnlocked(e, s.Progress, s.Exercises),
			ScorePercentage: row.ScorePercentage,
		})
	}
	return out
}

// completionTimeout bounds a shared completion write once it no longer
// follows the caller's context.
const completionTimeout = 10 * time.Second

type Tracker struct {
	store    Store
	ids      IDGenerator
	log      *logger.Logger
	inflight singleflight.Group
	timeout  time.Duration
}

func NewTracker(st Store, ids IDGenerator, baseLog *logger.Logger) *Tracker {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Tracker{store: st, ids: ids, log: baseLog.With("component", "ProgressTracker"), timeout: completionTimeout}
}

// LoadProgress fetches the course's exercises and the learner's rows for
// them. The first exercise always ends up with an unlocked row: one is
// created and persisted if missing.
func (t *Tracker) LoadProgress(ctx context.Context, courseID, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	exercises, err := t.store.ListExercisesByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: exercises of course %s: %w", ErrFetch, courseID, err)
	}

	ids := make([]string, len(exercises))
	for i, e := range exercises {
		ids[i] = e.ID
	}
	rows, err := t.store.ListProgress(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: progress of course %s: %w", ErrFetch, courseID, err)
	}
	snap := &Snapshot{Exercises: exercises, Progress: indexProgress(rows)}

	first, ok := findByOrder(exercises, 1)
	if !ok {
		return snap, nil
	}
	if _, has := snap.Progress[first.ID]; has {
		return snap, nil
	}
	row := models.UserProgress{
		ID:              t.ids.NewID(),
		UserID:          userID,
		ExerciseID:      first.ID,
		ScorePercentage: 0,
		IsUnlocked:      true,
	}
	if err := t.store.UpsertProgress(ctx, &row); err != nil {
		return nil, fmt.Errorf("%w: first exercise %s: %w", ErrUpsert, first.ID, err)
	}
	t.log.Debug("unlocked first exercise", "user_id", userID, "course_id", courseID, "exercise_id", first.ID)
	snap.Progress[first.ID] = row
	return snap, nil
}

// RecordCompletion stores score for the exercise and, at full score, unlocks
// the exercise that follows it in the course. The two writes are sequential
// and not atomic: when the second fails the first stays recorded and the
// error is returned so the caller can retry. Concurrent identical calls share
// one write, which runs detached from any single caller's cancellation.
func (t *Tracker) RecordCompletion(ctx context.Context, exerciseID string, score int, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if score < 0 || score > FullScore {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	key := userID + "|" + exerciseID + "|" + strconv.Itoa(score)
	_, err, _ := t.inflight.Do(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		return nil, t.recordCompletion(shared, exerciseID, score, userID)
	})
	return err
}

func (t *Tracker) recordCompletion(ctx context.Context, exerciseID string, score int, userID string) error {
	exercise, err := t.store.GetExercise(ctx, exerciseID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t.log.Warn("completion for unknown exercise", "exercise_id", exerciseID, "user_id", userID)
		exercise = nil
	case err != nil:
		return fmt.Errorf("%w: exercise %s: %w", ErrFetch, exerciseID, err)
	}

	ids := []string{exerciseID}
	var next models.Exercise
	hasNext := false
	if exercise != nil {
		exercises, err := t.store.ListExercisesByCourse(ctx, exercise.CourseID)
		if err != nil {
			return fmt.Errorf("%w: exercises of course %s: %w", ErrFetch, exercise.CourseID, err)
		}
		next, hasNext = findByOrder(exercises, exercise.Order+1)
		if hasNext {
			ids = append(ids, next.ID)
		}
	}

	rows, err := t.store.ListProgress(ctx, userID, ids)
	if err != nil {
		return fmt.Errorf("%w: progress of exercise %s: %w", ErrFetch, exerciseID, err)
	}
	existing := indexProgress(rows)

	prev, hadRow := existing[exerciseID]
	current := models.UserProgress{
		ID:              t.rowID(prev, hadRow),
		UserID:          userID,
		ExerciseID:      exerciseID,
		ScorePercentage: score,
		IsUnlocked:      true,
	}
	if err := t.store.UpsertProgress(ctx, &current); err != nil {
		return fmt.Errorf("%w: exercise %s: %w", ErrUpsert, exerciseID, err)
	}

	// An earlier full score already unlocked the successor; re-assert it so a
	// lower retake can never lock it again.
	completed := score >= FullScore || (hadRow && prev.ScorePercentage >= FullScore)
	if !completed || !hasNext {
		return nil
	}

	nextRow, hasNextRow := existing[next.ID]
	if hasNextRow && nextRow.IsUnlocked {
		return nil
	}
	unlock := models.UserProgress{
		ID:              t.rowID(nextRow, hasNextRow),
		UserID:          userID,
		ExerciseID:      next.ID,
		ScorePercentage: nextRow.ScorePercentage,
		IsUnlocked:      true,
	}
	if err := t.store.UpsertProgress(ctx, &unlock); err != nil {
		t.log.Warn("completion recorded but next exercise not unlocked",
			"user_id", userID, "exercise_id", exerciseID, "next_exercise_id", next.ID, "error", err)
		return fmt.Errorf("%w: unlock next exercise %s: %w", ErrUpsert, next.ID, err)
	}
	t.log.Debug("unlocked next exercise", "user_id", userID, "exercise_id", next.ID)
	return nil
}

func (t *Tracker) rowID(row models.UserProgress, ok bool) string {
	if ok && row.ID != "" {
		return row.ID
	}
	return t.ids.NewID()
}

// indexProgress keys rows by exercise id. Duplicate rows can only come from
// racing double submits; the higher score wins.
func indexProgress(rows []models.UserProgress) map[string]models.UserProgress {
	m := make(map[string]models.UserProgress, len(rows))
	for _, r := range rows {
		if cur, ok := m[r.ExerciseID]; ok && cur.ScorePercentage >= r.ScorePercentage {
			continue
		}
		m[r.ExerciseID] = r
	}
	return m
}
