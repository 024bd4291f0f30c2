package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prolific/models"
)

func TestIsUnlocked(t *testing.T) {
	exercises := threeExercises()
	ex1, ex2, ex3 := exercises[0], exercises[1], exercises[2]

	tests := []struct {
		name     string
		exercise models.Exercise
		progress map[string]models.UserProgress
		want     bool
	}{
		{"first with no rows", ex1, nil, true},
		{"first with locked row", ex1, map[string]models.UserProgress{"ex1": {ExerciseID: "ex1", IsUnlocked: false}}, true},
		{"second with no rows", ex2, nil, false},
		{"own row unlocked", ex2, map[string]models.UserProgress{"ex2": {ExerciseID: "ex2", IsUnlocked: true}}, true},
		{"predecessor full score", ex2, map[string]models.UserProgress{"ex1": {ExerciseID: "ex1", ScorePercentage: 100}}, true},
		{"predecessor partial score", ex2, map[string]models.UserProgress{"ex1": {ExerciseID: "ex1", ScorePercentage: 99, IsUnlocked: true}}, false},
		{"own row locked, predecessor done", ex2, map[string]models.UserProgress{
			"ex1": {ExerciseID: "ex1", ScorePercentage: 100},
			"ex2": {ExerciseID: "ex2", IsUnlocked: false},
		}, true},
		{"only grand-predecessor done", ex3, map[string]models.UserProgress{"ex1": {ExerciseID: "ex1", ScorePercentage: 100}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUnlocked(tc.exercise, tc.progress, exercises))
		})
	}
}

func TestIsUnlockedMissingPredecessor(t *testing.T) {
	orphan := models.Exercise{ID: "ex7", CourseID: "c1", Order: 7}
	assert.False(t, IsUnlocked(orphan, map[string]models.UserProgress{}, threeExercises()))
}

func TestIsUnlockedDoesNotMutateInput(t *testing.T) {
	exercises := threeExercises()
	progress := map[string]models.UserProgress{"ex1": {ExerciseID: "ex1", ScorePercentage: 100}}
	for i := 0; i < 3; i++ {
		assert.True(t, IsUnlocked(exercises[1], progress, exercises))
	}
	assert.Len(t, progress, 1)
	assert.Len(t, exercises, 3)
}

func TestStatusOf(t *testing.T) {
	exercises := threeExercises()
	progress := map[string]models.UserProgress{
		"ex1": {ExerciseID: "ex1", ScorePercentage: 100, IsUnlocked: true},
		"ex2": {ExerciseID: "ex2", ScorePercentage: 30, IsUnlocked: true},
	}
	assert.Equal(t, StatusCompleted, StatusOf(exercises[0], progress, exercises))
	assert.Equal(t, StatusUnlocked, StatusOf(exercises[1], progress, exercises))
	assert.Equal(t, StatusLocked, StatusOf(exercises[2], progress, exercises))
}
