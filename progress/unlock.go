package progress

import "prolific/models"

type Status string

const (
	StatusLocked     Status = "LOCKED"
	StatusUnlocked   Status = "UNLOCKED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// FullScore is the score that completes an exercise and unlocks the next.
const FullScore = 100

// IsUnlocked reports whether the learner may enter exercise. It only reads
// the already-loaded state.
func IsUnlocked(exercise models.Exercise, progress map[string]models.UserProgress, exercises []models.Exercise) bool {
	if exercise.Order == 1 {
		return true
	}
	if row, ok := progress[exercise.ID]; ok && row.IsUnlocked {
		return true
	}
	prev, ok := findByOrder(exercises, exercise.Order-1)
	if !ok {
		return false
	}
	row, ok := progress[prev.ID]
	return ok && row.ScorePercentage >= FullScore
}

// StatusOf places exercise in the persisted part of the state machine;
// IN_PROGRESS only exists while a step session is open.
func StatusOf(exercise models.Exercise, progress map[string]models.UserProgress, exercises []models.Exercise) Status {
	if row, ok := progress[exercise.ID]; ok && row.ScorePercentage >= FullScore {
		return StatusCompleted
	}
	if IsUnlocked(exercise, progress, exercises) {
		return StatusUnlocked
	}
	return StatusLocked
}

func findByOrder(exercises []models.Exercise, order int) (models.Exercise, bool) {
	for _, e := range exercises {
		if e.Order == order {
			return e, true
		}
	}
	return models.Exercise{}, false
}
