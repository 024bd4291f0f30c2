// Package sequencer walks the ordered steps of one exercise and grades
// answers.
package sequencer

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"prolific/models"
)

// Evaluate compares answer with the step's correct answer, ignoring case
// only. Whitespace is significant: "True " does not match "True".
// Content steps take no answer and always pass.
func Evaluate(step models.Step, answer string) bool {
	if step.Type == models.StepContent {
		return true
	}
	// a Caser keeps state, so one per call
	lower := cases.Lower(language.Und)
	return lower.String(answer) == lower.String(step.CorrectAnswer)
}

// Advance returns the index after current, or complete=true when current
// is the last of total steps.
func Advance(current, total int) (next int, complete bool) {
	if current < total-1 {
		return current + 1, false
	}
	return current, true
}
