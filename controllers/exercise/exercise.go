package exerciseController

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"prolific/logger"
	"prolific/middleware"
	"prolific/models"
	"prolific/progress"
	"prolific/sequencer"
	"prolific/store"
	exerciseValidator "prolific/validators/exercise"
)

type Controller struct {
	store    store.ContentStore
	tracker  *progress.Tracker
	sessions *sequencer.Registry
	ids      progress.IDGenerator
	timeout  time.Duration
	log      *logger.Logger
}

func New(st store.ContentStore, tracker *progress.Tracker, sessions *sequencer.Registry, ids progress.IDGenerator, timeout time.Duration, baseLog *logger.Logger) *Controller {
	if ids == nil {
		ids = progress.UUIDGenerator{}
	}
	return &Controller{
		store:    st,
		tracker:  tracker,
		sessions: sessions,
		ids:      ids,
		timeout:  timeout,
		log:      baseLog.With("controller", "exercise"),
	}
}

func (h *Controller) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// publicSteps hides answers and attaches each step's audio asset.
func (h *Controller) publicSteps(ctx context.Context, steps []models.Step) ([]models.PublicStep, error) {
	var audioIDs []string
	for _, s := range steps {
		if s.AudioID != nil {
			audioIDs = append(audioIDs, *s.AudioID)
		}
	}
	assets, err := h.store.ListAudioAssets(ctx, audioIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.AudioAsset, len(assets))
	for i := range assets {
		byID[assets[i].ID] = &assets[i]
	}

	out := make([]models.PublicStep, len(steps))
	for i, s := range steps {
		var audio *models.AudioAsset
		if s.AudioID != nil {
			audio = byID[*s.AudioID]
		}
		out[i] = s.Public(audio)
	}
	return out, nil
}

func (h *Controller) publicStep(ctx context.Context, step models.Step) (models.PublicStep, error) {
	out, err := h.publicSteps(ctx, []models.Step{step})
	if err != nil {
		return models.PublicStep{}, err
	}
	return out[0], nil
}

// unlockedExercise loads the exercise and reports whether userID may enter it.
func (h *Controller) unlockedExercise(ctx context.Context, exerciseID, userID string) (*models.Exercise, bool, error) {
	exercise, err := h.store.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, false, err
	}
	snap, err := h.tracker.LoadProgress(ctx, exercise.CourseID, userID)
	if err != nil {
		h.log.Error("Error loading progress", "exercise_id", exerciseID, "user_id", userID, "error", err)
		return nil, false, err
	}
	return exercise, snap.IsUnlocked(*exercise), nil
}

func lockedResponse(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Exercise is locked!", fiber.Map{"code": "locked"})
}

// Steps lists the exercise's steps in order without their answers.
func (h *Controller) Steps(c *fiber.Ctx) error {
	exerciseID := c.Locals("exercise_id").(string)
	ctx, cancel := h.ctx(c)
	defer cancel()

	exercise, err := h.store.GetExercise(ctx, exerciseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	steps, err := h.store.ListStepsByExercise(ctx, exerciseID)
	if err != nil {
		h.log.Error("Error listing steps", "exercise_id", exerciseID, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	public, err := h.publicSteps(ctx, steps)
	if err != nil {
		h.log.Error("Error loading audio", "exercise_id", exerciseID, "error", err)
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Steps fetched successfully!", fiber.Map{
		"exercise": exercise,
		"steps":    public,
	})
}

// Start opens a session on an unlocked exercise, replacing any session the
// caller already had on it, and returns the first step.
func (h *Controller) Start(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	exerciseID := c.Locals("exercise_id").(string)
	ctx, cancel := h.ctx(c)
	defer cancel()

	exercise, unlocked, err := h.unlockedExercise(ctx, exerciseID, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !unlocked {
		return lockedResponse(c)
	}

	steps, err := h.store.ListStepsByExercise(ctx, exerciseID)
	if err != nil {
		h.log.Error("Error listing steps", "exercise_id", exerciseID, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	session, err := sequencer.NewSession(userID, *exercise, steps)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	step, index := session.Current()
	public, err := h.publicStep(ctx, step)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	h.sessions.Start(session)
	h.log.Debug("Exercise started", "exercise_id", exerciseID, "user_id", userID, "steps", session.Total())

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exercise started!", fiber.Map{
		"exercise": exercise,
		"position": sequencer.Position{Index: index, Total: session.Total()},
		"step":     public,
	})
}

// Answer grades the current step and appends it to the attempt log.
func (h *Controller) Answer(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	exerciseID := c.Locals("exercise_id").(string)
	reqData, ok := c.Locals("validatedAnswer").(*exerciseValidator.AnswerRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	session, err := h.sessions.Get(userID, exerciseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	result, err := session.Submit(reqData.Answer)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	attemptNumber := 1
	if n, err := h.store.CountAttempts(ctx, userID, result.StepID); err != nil {
		h.log.Warn("Error counting attempts", "step_id", result.StepID, "error", err)
	} else {
		attemptNumber = int(n) + 1
	}
	attempt := models.StepAttempt{
		ID:            h.ids.NewID(),
		UserID:        userID,
		ExerciseID:    exerciseID,
		StepID:        result.StepID,
		Answer:        result.Answer,
		IsCorrect:     result.IsCorrect,
		AttemptNumber: attemptNumber,
	}
	// the graded result stands even when the log write fails
	if err := h.store.CreateAttempt(ctx, &attempt); err != nil {
		h.log.Warn("Error saving attempt", "step_id", result.StepID, "user_id", userID, "error", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer submitted!", fiber.Map{
		"result":         result,
		"attempt_number": attemptNumber,
	})
}

// Continue moves to the next step. Leaving the last step records the
// session score as the exercise's completion.
func (h *Controller) Continue(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	exerciseID := c.Locals("exercise_id").(string)
	ctx, cancel := h.ctx(c)
	defer cancel()

	session, err := h.sessions.Get(userID, exerciseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	pos, err := session.Continue()
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	if !pos.Complete {
		step, _ := session.Current()
		public, err := h.publicStep(ctx, step)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Next step.", fiber.Map{
			"position": pos,
			"step":     public,
		})
	}

	// on failure the finished session stays open so the client can retry
	// through Complete with the returned score
	if err := h.tracker.RecordCompletion(ctx, exerciseID, pos.Score, userID); err != nil {
		h.log.Error("Error recording completion", "exercise_id", exerciseID, "user_id", userID, "score", pos.Score, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	h.sessions.Finish(userID, exerciseID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exercise completed!", fiber.Map{
		"position":  pos,
		"score":     pos.Score,
		"completed": pos.Score >= progress.FullScore,
	})
}

// Complete records a score the client computed itself for an exercise the
// caller has unlocked.
func (h *Controller) Complete(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	exerciseID := c.Locals("exercise_id").(string)
	reqData, ok := c.Locals("validatedCompletion").(*exerciseValidator.CompleteRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	_, unlocked, err := h.unlockedExercise(ctx, exerciseID, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !unlocked {
		return lockedResponse(c)
	}

	score := *reqData.Score
	if err := h.tracker.RecordCompletion(ctx, exerciseID, score, userID); err != nil {
		h.log.Error("Error recording completion", "exercise_id", exerciseID, "user_id", userID, "score", score, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	h.sessions.Finish(userID, exerciseID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Completion recorded!", fiber.Map{
		"score":     score,
		"completed": score >= progress.FullScore,
	})
}
