package sequencer

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"prolific/models"
)

var (
	ErrNoSteps         = errors.New("exercise has no steps")
	ErrNoSession       = errors.New("no active session for exercise")
	ErrNotAQuestion    = errors.New("current step takes no answer")
	ErrAlreadyAnswered = errors.New("current step already answered")
	ErrAnswerRequired  = errors.New("answer the current step before continuing")
	ErrFinished        = errors.New("exercise already finished")
)

// Result is the outcome of answering one step.
type Result struct {
	StepID        string `json:"step_id"`
	Answer        string `json:"answer"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Position is where the session stands after Continue.
type Position struct {
	Index    int  `json:"index"`
	Total    int  `json:"total"`
	Complete bool `json:"complete"`
	Score    int  `json:"score"`
}

// Session is one learner's walk through one exercise. Safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	userID    string
	exercise  models.Exercise
	steps     []models.Step
	index     int
	answered  bool
	results   map[string]Result
	done      bool
	startedAt time.Time
}

func NewSession(userID string, exercise models.Exercise, steps []models.Step) (*Session, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	ordered := make([]models.Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	return &Session{
		userID:    userID,
		exercise:  exercise,
		steps:     ordered,
		results:   map[string]Result{},
		startedAt: time.Now(),
	}, nil
}

func (s *Session) Exercise() models.Exercise { return s.exercise }

func (s *Session) UserID() string { return s.userID }

// Current returns the step on screen and its index.
func (s *Session) Current() (models.Step, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[s.index], s.index
}

func (s *Session) Total() int { return len(s.steps) }

func (s *Session) StartedAt() time.Time { return s.startedAt }

// Submit grades answer against the current step. Each question step takes
// exactly one answer.
func (s *Session) Submit(answer string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Result{}, ErrFinished
	}
	step := s.steps[s.index]
	if !step.Type.IsQuestion() {
		return Result{}, ErrNotAQuestion
	}
	if s.answered {
		return Result{}, ErrAlreadyAnswered
	}
	r := Result{
		StepID:        step.ID,
		Answer:        answer,
		IsCorrect:     Evaluate(step, answer),
		CorrectAnswer: step.CorrectAnswer,
		Explanation:   step.Explanation,
	}
	s.results[step.ID] = r
	s.answered = true
	return r, nil
}

// Continue moves past the current step. Content steps pass unconditionally;
// question steps need an answer first. Continuing from the last step
// completes the session.
func (s *Session) Continue() (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Position{}, ErrFinished
	}
	if s.steps[s.index].Type.IsQuestion() && !s.answered {
		return Position{}, ErrAnswerRequired
	}
	next, complete := Advance(s.index, len(s.steps))
	if complete {
		s.done = true
		return Position{Index: s.index, Total: len(s.steps), Complete: true, Score: s.scoreLocked()}, nil
	}
	s.index = next
	s.answered = false
	return Position{Index: s.index, Total: len(s.steps)}, nil
}

// Score is the rounded percentage of question steps answered correctly, or
// 100 for an exercise with no questions.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() int {
	questions, correct := 0, 0
	for _, st := range s.steps {
		if !st.Type.IsQuestion() {
			continue
		}
		questions++
		if s.results[st.ID].IsCorrect {
			correct++
		}
	}
	if questions == 0 {
		return 100
	}
	return int(math.Round(float64(correct) * 100 / float64(questions)))
}

func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
