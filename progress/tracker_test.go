package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prolific/logger"
	"prolific/models"
	"prolific/store"
)

type memStore struct {
	mu        sync.Mutex
	exercises []models.Exercise
	rows      map[string]models.UserProgress // by row id
	upserts   int

	failList     error
	failProgress error
	failUpsertOn func(row *models.UserProgress) error
}

func newMemStore(exercises ...models.Exercise) *memStore {
	return &memStore{exercises: exercises, rows: map[string]models.UserProgress{}}
}

func (m *memStore) GetExercise(_ context.Context, id string) (*models.Exercise, error) {
	for _, e := range m.exercises {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListExercisesByCourse(_ context.Context, courseID string) ([]models.Exercise, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	var out []models.Exercise
	for _, e := range m.exercises {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *memStore) ListProgress(_ context.Context, userID string, exerciseIDs []string) ([]models.UserProgress, error) {
	if m.failProgress != nil {
		return nil, m.failProgress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range exerciseIDs {
		want[id] = true
	}
	var out []models.UserProgress
	for _, r := range m.rows {
		if r.UserID == userID && want[r.ExerciseID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) UpsertProgress(_ context.Context, row *models.UserProgress) error {
	if m.failUpsertOn != nil {
		if err := m.failUpsertOn(row); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.rows[row.ID] = *row
	return nil
}

func (m *memStore) rowsFor(userID, exerciseID string) []models.UserProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserProgress
	for _, r := range m.rows {
		if r.UserID == userID && r.ExerciseID == exerciseID {
			out = append(out, r)
		}
	}
	return out
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("row-%d", g.n)
}

// ctxStore fails writes whose context is already done.
type ctxStore struct {
	*memStore
}

func (c ctxStore) UpsertProgress(ctx context.Context, row *models.UserProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memStore.UpsertProgress(ctx, row)
}

func threeExercises() []models.Exercise {
	return []models.Exercise{
		{ID: "ex1", CourseID: "c1", Title: "Intro", Order: 1},
		{ID: "ex2", CourseID: "c1", Title: "Middle", Order: 2},
		{ID: "ex3", CourseID: "c1", Title: "Final", Order: 3},
	}
}

func newTestTracker(st Store) *Tracker {
	return NewTracker(st, &seqIDs{}, logger.Nop())
}

func unlockedFlags(snap *Snapshot) []bool {
	out := make([]bool, len(snap.Exercises))
	for i, e := range snap.Exercises {
		out[i] = snap.IsUnlocked(e)
	}
	return out
}

func TestLoadProgressFreshUserSynthesizesFirstRow(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	snap, err := tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)

	require.Len(t, snap.Exercises, 3)
	first, ok := snap.Progress["ex1"]
	require.True(t, ok)
	assert.True(t, first.IsUnlocked)
	assert.Equal(t, 0, first.ScorePercentage)
	assert.NotContains(t, snap.Progress, "ex2")
	assert.NotContains(t, snap.Progress, "ex3")
	assert.Equal(t, []bool{true, false, false}, unlockedFlags(snap))

	persisted := st.rowsFor("u1", "ex1")
	require.Len(t, persisted, 1)
	assert.Equal(t, first.ID, persisted[0].ID)
}

func TestLoadProgressDoesNotRewriteExistingFirstRow(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	_, err := tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)
	_, err = tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, st.upserts)
	assert.Len(t, st.rowsFor("u1", "ex1"), 1)
}

func TestCompletionUnlocksNextExercise(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	_, err := tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))

	snap, err := tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Progress["ex1"].ScorePercentage)
	next, ok := snap.Progress["ex2"]
	require.True(t, ok)
	assert.Equal(t, 0, next.ScorePercentage)
	assert.True(t, next.IsUnlocked)
	assert.Equal(t, []bool{true, true, false}, unlockedFlags(snap))

	statuses := snap.Summarize()
	assert.Equal(t, StatusCompleted, statuses[0].Status)
	assert.Equal(t, StatusUnlocked, statuses[1].Status)
	assert.Equal(t, StatusLocked, statuses[2].Status)
}

func TestCompletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))
	firstRows := st.rowsFor("u1", "ex1")
	require.Len(t, firstRows, 1)

	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))

	rows := st.rowsFor("u1", "ex1")
	require.Len(t, rows, 1)
	assert.Equal(t, firstRows[0].ID, rows[0].ID)
	assert.Equal(t, 100, rows[0].ScorePercentage)
	assert.Len(t, st.rowsFor("u1", "ex2"), 1)
	assert.Empty(t, st.rowsFor("u1", "ex3"))
}

func TestPartialScoreDoesNotUnlockNext(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 80, "u1"))

	rows := st.rowsFor("u1", "ex1")
	require.Len(t, rows, 1)
	assert.Equal(t, 80, rows[0].ScorePercentage)
	assert.True(t, rows[0].IsUnlocked)
	assert.Empty(t, st.rowsFor("u1", "ex2"))
}

func TestLastExerciseCompletionHasNoSuccessor(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ex3", 100, "u1"))

	assert.Equal(t, 1, st.upserts)
	assert.Len(t, st.rowsFor("u1", "ex3"), 1)
	assert.Empty(t, st.rowsFor("u1", "ex1"))
	assert.Empty(t, st.rowsFor("u1", "ex2"))
}

func TestUnknownExerciseIsStillRecorded(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ghost", 100, "u1"))
	assert.Len(t, st.rowsFor("u1", "ghost"), 1)
	assert.Equal(t, 1, st.upserts)
}

func TestLowerRetakeKeepsSuccessorUnlocked(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))
	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 40, "u1"))

	snap, err := tr.LoadProgress(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 40, snap.Progress["ex1"].ScorePercentage)
	assert.Equal(t, []bool{true, true, false}, unlockedFlags(snap))
}

func TestNextUnlockKeepsExistingScore(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	st.rows["seed"] = models.UserProgress{ID: "seed", UserID: "u1", ExerciseID: "ex2", ScorePercentage: 60, IsUnlocked: false}
	tr := newTestTracker(st)

	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))

	rows := st.rowsFor("u1", "ex2")
	require.Len(t, rows, 1)
	assert.Equal(t, "seed", rows[0].ID)
	assert.Equal(t, 60, rows[0].ScorePercentage)
	assert.True(t, rows[0].IsUnlocked)
}

func TestNextUnlockFailurePropagates(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	boom := errors.New("connection reset")
	st.failUpsertOn = func(row *models.UserProgress) error {
		if row.ExerciseID == "ex2" {
			return boom
		}
		return nil
	}
	tr := newTestTracker(st)

	err := tr.RecordCompletion(ctx, "ex1", 100, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpsert)
	assert.ErrorIs(t, err, boom)

	// the first write is durable
	rows := st.rowsFor("u1", "ex1")
	require.Len(t, rows, 1)
	assert.Equal(t, 100, rows[0].ScorePercentage)

	// a retry finishes the unlock without duplicating the first row
	st.failUpsertOn = nil
	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))
	assert.Len(t, st.rowsFor("u1", "ex1"), 1)
	assert.Len(t, st.rowsFor("u1", "ex2"), 1)
}

func TestUnauthenticated(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	_, err := tr.LoadProgress(ctx, "c1", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, tr.RecordCompletion(ctx, "ex1", 100, ""), ErrUnauthenticated)
	assert.Zero(t, st.upserts)
}

func TestInvalidScore(t *testing.T) {
	tr := newTestTracker(newMemStore(threeExercises()...))
	assert.ErrorIs(t, tr.RecordCompletion(context.Background(), "ex1", 101, "u1"), ErrInvalidScore)
	assert.ErrorIs(t, tr.RecordCompletion(context.Background(), "ex1", -1, "u1"), ErrInvalidScore)
}

func TestFetchFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("timeout")

	st := newMemStore(threeExercises()...)
	st.failList = boom
	_, err := newTestTracker(st).LoadProgress(ctx, "c1", "u1")
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, boom)

	st = newMemStore(threeExercises()...)
	st.failProgress = boom
	_, err = newTestTracker(st).LoadProgress(ctx, "c1", "u1")
	assert.ErrorIs(t, err, ErrFetch)
	assert.Zero(t, st.upserts)
}

func TestFirstRowUpsertFailure(t *testing.T) {
	st := newMemStore(threeExercises()...)
	st.failUpsertOn = func(*models.UserProgress) error { return errors.New("read only") }
	_, err := newTestTracker(st).LoadProgress(context.Background(), "c1", "u1")
	assert.ErrorIs(t, err, ErrUpsert)
}

func TestUnlockIsMonotonic(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(st)

	scores := []int{100, 0, 100, 50, 100, 10}
	targets := []string{"ex1", "ex1", "ex2", "ex2", "ex1", "ex2"}
	seen := map[string]bool{}
	for i := range scores {
		require.NoError(t, tr.RecordCompletion(ctx, targets[i], scores[i], "u1"))
		snap, err := tr.LoadProgress(ctx, "c1", "u1")
		require.NoError(t, err)
		for _, e := range snap.Exercises {
			unlocked := snap.IsUnlocked(e)
			if seen[e.ID] {
				assert.True(t, unlocked, "exercise %s relocked after step %d", e.ID, i)
			}
			seen[e.ID] = seen[e.ID] || unlocked
		}
	}
	assert.True(t, seen["ex3"])
}

func TestCompletionOutlivesCallerCancellation(t *testing.T) {
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(ctxStore{st})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, tr.RecordCompletion(ctx, "ex1", 100, "u1"))

	rows := st.rowsFor("u1", "ex1")
	require.Len(t, rows, 1)
	assert.Equal(t, 100, rows[0].ScorePercentage)
	next := st.rowsFor("u1", "ex2")
	require.Len(t, next, 1)
	assert.True(t, next[0].IsUnlocked)
}

func TestCompletionSharedWriteIsBounded(t *testing.T) {
	st := newMemStore(threeExercises()...)
	tr := newTestTracker(ctxStore{st})
	tr.timeout = 0

	err := tr.RecordCompletion(context.Background(), "ex1", 100, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, st.rowsFor("u1", "ex1"))
}
