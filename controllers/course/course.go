package courseController

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"prolific/logger"
	"prolific/middleware"
	"prolific/progress"
	"prolific/sequencer"
	"prolific/store"
)

type Controller struct {
	store    store.Catalog
	tracker  *progress.Tracker
	sessions *sequencer.Registry
	timeout  time.Duration
	log      *logger.Logger
}

func New(st store.Catalog, tracker *progress.Tracker, sessions *sequencer.Registry, timeout time.Duration, baseLog *logger.Logger) *Controller {
	return &Controller{
		store:    st,
		tracker:  tracker,
		sessions: sessions,
		timeout:  timeout,
		log:      baseLog.With("controller", "course"),
	}
}

func (h *Controller) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *Controller) ListTopics(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	topics, err := h.store.ListTopics(ctx)
	if err != nil {
		h.log.Error("Error listing topics", "error", err)
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Topics fetched successfully!", topics)
}

func (h *Controller) ListCourses(c *fiber.Ctx) error {
	topicID := c.Locals("topic_id").(string)
	ctx, cancel := h.ctx(c)
	defer cancel()

	courses, err := h.store.ListCoursesByTopic(ctx, topicID)
	if err != nil {
		h.log.Error("Error listing courses", "topic_id", topicID, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", courses)
}

// CourseProgress returns the course with each exercise's status for the
// caller. Loading it unlocks the first exercise for a new learner.
func (h *Controller) CourseProgress(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	courseID := c.Locals("course_id").(string)
	ctx, cancel := h.ctx(c)
	defer cancel()

	course, err := h.store.GetCourse(ctx, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	snap, err := h.tracker.LoadProgress(ctx, courseID, userID)
	if err != nil {
		h.log.Error("Error loading progress", "course_id", courseID, "user_id", userID, "error", err)
		return middleware.ErrorResponse(c, err)
	}

	summary := snap.Summarize()
	ids := make([]string, len(summary))
	for i, s := range summary {
		ids[i] = s.Exercise.ID
	}
	active := h.sessions.Active(userID, ids)
	completed := 0
	for i, s := range summary {
		if s.Status == progress.StatusCompleted {
			completed++
			continue
		}
		if s.IsUnlocked && active[s.Exercise.ID] {
			summary[i].Status = progress.StatusInProgress
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress fetched successfully!", fiber.Map{
		"course":    course,
		"exercises": summary,
		"completed": completed,
		"total":     len(summary),
	})
}
