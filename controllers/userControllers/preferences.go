package userControllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"prolific/logger"
	"prolific/middleware"
	"prolific/models"
	"prolific/store"
	"prolific/validators/userValidator"
)

type Controller struct {
	store   store.Learner
	timeout time.Duration
	log     *logger.Logger
}

func New(st store.Learner, timeout time.Duration, baseLog *logger.Logger) *Controller {
	return &Controller{store: st, timeout: timeout, log: baseLog.With("controller", "user")}
}

func (h *Controller) load(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := h.store.GetPreferences(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		defaults := models.DefaultPreferences(userID)
		return &defaults, nil
	}
	return prefs, err
}

func (h *Controller) GetPreferences(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	prefs, err := h.load(ctx, userID)
	if err != nil {
		h.log.Error("Error loading preferences", "user_id", userID, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Preferences fetched successfully!", prefs)
}

func (h *Controller) UpdatePreferences(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	reqData, ok := c.Locals("validatedPreferences").(*userValidator.PreferencesRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	prefs, err := h.load(ctx, userID)
	if err != nil {
		h.log.Error("Error loading preferences", "user_id", userID, "error", err)
		return middleware.ErrorResponse(c, err)
	}

	if reqData.DailyGoal != nil {
		prefs.DailyGoal = *reqData.DailyGoal
	}
	if reqData.RemindersEnabled != nil {
		prefs.RemindersEnabled = *reqData.RemindersEnabled
	}
	if reqData.ReminderHour != nil {
		prefs.ReminderHour = *reqData.ReminderHour
	}
	if reqData.SoundEnabled != nil {
		prefs.SoundEnabled = *reqData.SoundEnabled
	}
	prefs.UpdatedAt = time.Now()

	if err := h.store.UpsertPreferences(ctx, prefs); err != nil {
		h.log.Error("Error saving preferences", "user_id", userID, "error", err)
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Preferences updated successfully!", prefs)
}
