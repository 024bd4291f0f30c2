package sequencer

import (
	"sync"
	"time"
)

type sessionKey struct {
	userID     string
	exerciseID string
}

// Registry holds the open sessions of every learner. Sessions live from
// exercise start until completion, logout or Sweep.
type Registry struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[sessionKey]*Session{}, now: time.Now}
}

// Start replaces any open session for the same learner and exercise.
func (r *Registry) Start(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey{s.userID, s.exercise.ID}] = s
}

func (r *Registry) Get(userID, exerciseID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey{userID, exerciseID}]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Active reports which of the given exercises have an open session.
func (r *Registry) Active(userID string, exerciseIDs []string) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, id := range exerciseIDs {
		if _, ok := r.sessions[sessionKey{userID, id}]; ok {
			out[id] = true
		}
	}
	return out
}

func (r *Registry) Finish(userID, exerciseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey{userID, exerciseID})
}

// EndUser drops every session of userID and returns how many were open.
func (r *Registry) EndUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.sessions {
		if k.userID == userID {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

// Sweep drops sessions started more than maxAge ago and returns how many
// were dropped.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, s := range r.sessions {
		if s.StartedAt().Before(cutoff) {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}
