// Package apierr carries an HTTP status and a stable code alongside an error.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"prolific/models"
	"prolific/progress"
	"prolific/sequencer"
	"prolific/store"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From classifies err by the sentinel it wraps. An *Error anywhere in the
// chain wins; unknown errors become 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var re *store.RestError
	switch {
	case errors.Is(err, progress.ErrUnauthenticated):
		return New(http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, store.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, sequencer.ErrNoSession):
		return New(http.StatusNotFound, "no_session", err)
	case errors.Is(err, progress.ErrInvalidScore):
		return New(http.StatusUnprocessableEntity, "invalid_score", err)
	case errors.Is(err, models.ErrUnknownRichContent):
		return New(http.StatusUnprocessableEntity, "invalid_rich_content", err)
	case errors.Is(err, sequencer.ErrNoSteps):
		return New(http.StatusConflict, "no_steps", err)
	case errors.Is(err, sequencer.ErrNotAQuestion):
		return New(http.StatusConflict, "not_a_question", err)
	case errors.Is(err, sequencer.ErrAlreadyAnswered):
		return New(http.StatusConflict, "already_answered", err)
	case errors.Is(err, sequencer.ErrAnswerRequired):
		return New(http.StatusConflict, "answer_required", err)
	case errors.Is(err, sequencer.ErrFinished):
		return New(http.StatusConflict, "finished", err)
	case errors.Is(err, progress.ErrFetch), errors.Is(err, progress.ErrUpsert), errors.As(err, &re):
		return New(http.StatusBadGateway, "backend_error", err)
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
