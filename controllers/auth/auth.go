package authController

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"prolific/logger"
	"prolific/middleware"
	"prolific/models"
	"prolific/progress"
	"prolific/sequencer"
	"prolific/utils"
	authValidator "prolific/validators/auth"
)

const (
	maxFailedLogins = 3
	failureWindow   = 15 * time.Minute
	blockDuration   = time.Minute
)

// Controller serves local accounts. Only Logout is mounted when identities
// come from the managed backend.
type Controller struct {
	db        *gorm.DB
	tokens    *middleware.JWTIdentity
	sessions  *sequencer.Registry
	mailer    utils.Mailer
	ids       progress.IDGenerator
	saltRound int
	log       *logger.Logger
}

func New(db *gorm.DB, tokens *middleware.JWTIdentity, sessions *sequencer.Registry, mailer utils.Mailer, saltRound int, baseLog *logger.Logger) *Controller {
	return &Controller{
		db:        db,
		tokens:    tokens,
		sessions:  sessions,
		mailer:    mailer,
		ids:       progress.UUIDGenerator{},
		saltRound: saltRound,
		log:       baseLog.With("controller", "auth"),
	}
}

func (h *Controller) Signup(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.SignupRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := h.db.WithContext(c.UserContext())

	// Check if email already exists
	if err := db.Where("email = ?", reqData.Email).First(&models.User{}).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), h.saltRound)
	if err != nil {
		h.log.Error("Error hashing password", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	newUser := models.User{
		ID:       h.ids.NewID(),
		Name:     reqData.Name,
		Email:    reqData.Email,
		Role:     middleware.RoleLearner,
		Password: string(hashedPassword),
	}
	if err := db.Create(&newUser).Error; err != nil {
		h.log.Error("Error saving user to database", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to Signup user!", nil)
	}

	go func(user models.User) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.mailer.Send(ctx, user.Email, user.Name, utils.WelcomeEmail(user.Name)); err != nil {
			h.log.Warn("Welcome email failed", "user_id", user.ID, "error", err)
		}
	}(newUser)

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered successfully.", newUser)
}

func (h *Controller) Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedUser").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := h.db.WithContext(c.UserContext())

	var user models.User
	if err := db.Where("email = ? AND is_deleted = ?", reqData.Email, false).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.log.Error("Error loading user", "error", err)
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	current := time.Now()

	if user.IsBlocked && user.BlockedUntil != nil && user.BlockedUntil.After(current) {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Your account is temporarily blocked. Try again later.", nil)
	}

	if user.LastFailedLogin != nil && current.Sub(*user.LastFailedLogin) > failureWindow {
		user.FailedLoginAttempts = 0
		user.LastFailedLogin = nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		user.FailedLoginAttempts++
		user.LastFailedLogin = &current
		if user.FailedLoginAttempts >= maxFailedLogins {
			unblockTime := current.Add(blockDuration)
			user.IsBlocked = true
			user.BlockedUntil = &unblockTime
		}
		if err := db.Save(&user).Error; err != nil {
			h.log.Error("Error saving failed login", "user_id", user.ID, "error", err)
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	user.LastLogin = &current
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	user.IsBlocked = false
	user.BlockedUntil = nil
	if err := db.Save(&user).Error; err != nil {
		h.log.Error("Error saving last login time", "user_id", user.ID, "error", err)
	}

	ip := c.IP()
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		ip = forwarded
	}
	loginTracking := models.LoginTracking{
		UserID:    user.ID,
		IPAddress: ip,
		Device:    c.Get("User-Agent"),
		Timestamp: current,
	}
	if err := db.Create(&loginTracking).Error; err != nil {
		h.log.Error("Error saving login tracking details", "error", err)
	}

	token, err := h.tokens.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token", nil)
	}

	h.log.Info("User logged in", "user_id", user.ID, "ip", ip)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (h *Controller) LoginHistoryList(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	reqData, ok := c.Locals("validatedLoginHistory").(*authValidator.LoginHistoryRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := h.db.WithContext(c.UserContext())
	offset := (reqData.Page - 1) * reqData.Limit

	var loginTracking []models.LoginTracking
	var total int64
	if err := db.Where("user_id = ?", userID).
		Order("timestamp DESC").
		Offset(offset).
		Limit(reqData.Limit).
		Find(&loginTracking).Error; err != nil {
		h.log.Error("Error listing logins", "user_id", userID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
	db.Model(&models.LoginTracking{}).Where("user_id = ?", userID).Count(&total)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login History List.", fiber.Map{
		"loginTracking": loginTracking,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}

// Logout drops the caller's open exercise sessions. Tokens stay valid until
// they expire.
func (h *Controller) Logout(c *fiber.Ctx) error {
	closed := h.sessions.EndUser(middleware.UserID(c))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logged out.", fiber.Map{"closed_sessions": closed})
}
