package models

import (
	"time"

	"gorm.io/datatypes"
)

type StepType string

const (
	StepContent        StepType = "content"
	StepMultipleChoice StepType = "multiple_choice"
	StepTrueFalse      StepType = "true_false"
	StepInput          StepType = "input"
)

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	switch t {
	case StepContent, StepMultipleChoice, StepTrueFalse, StepInput:
		return true
	}
	return false
}

// IsQuestion reports whether a step of this type expects an answer.
func (t StepType) IsQuestion() bool {
	return t.Valid() && t != StepContent
}

// Step is one screen of an exercise.
type Step struct {
	ID            string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ExerciseID    string                      `json:"exercise_id" gorm:"index;type:varchar(36);not null"`
	Type          StepType                    `json:"type" gorm:"type:varchar(32);not null"`
	Content       string                      `json:"content" gorm:"type:text"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `json:"correct_answer"`
	Explanation   string                      `json:"explanation" gorm:"type:text"`
	Order         int                         `json:"order" gorm:"column:order;not null"`
	RichContent   *RichContent                `json:"rich_content,omitempty" gorm:"serializer:json"`
	AudioID       *string                     `json:"audio_id,omitempty" gorm:"type:varchar(36)"`
	VideoURL      string                      `json:"video_url,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// PublicStep is a step as shown to a learner before answering.
type PublicStep struct {
	ID          string       `json:"id"`
	ExerciseID  string       `json:"exercise_id"`
	Type        StepType     `json:"type"`
	Content     string       `json:"content"`
	Options     []string     `json:"options"`
	Order       int          `json:"order"`
	RichContent *RichContent `json:"rich_content,omitempty"`
	Audio       *AudioAsset  `json:"audio,omitempty"`
	VideoURL    string       `json:"video_url,omitempty"`
}

// Public strips the answer and explanation.
func (s Step) Public(audio *AudioAsset) PublicStep {
	opts := []string(s.Options)
	if opts == nil {
		opts = []string{}
	}
	return PublicStep{
		ID:          s.ID,
		ExerciseID:  s.ExerciseID,
		Type:        s.Type,
		Content:     s.Content,
		Options:     opts,
		Order:       s.Order,
		RichContent: s.RichContent,
		Audio:       audio,
		VideoURL:    s.VideoURL,
	}
}
