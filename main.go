package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"prolific/cache"
	"prolific/config"
	authController "prolific/controllers/auth"
	courseController "prolific/controllers/course"
	exerciseController "prolific/controllers/exercise"
	"prolific/controllers/userControllers"
	"prolific/database"
	"prolific/logger"
	"prolific/middleware"
	"prolific/progress"
	"prolific/routers/authRoutes"
	"prolific/routers/courseRoutes"
	"prolific/routers/userRoutes"
	"prolific/sequencer"
	"prolific/store"
	"prolific/utils"
)

func main() {
	cfg := config.LoadConfig()

	appLog, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLog.Sync()

	var (
		backend  store.ContentStore
		identity middleware.IdentityProvider
		tokens   *middleware.JWTIdentity
		db       *gorm.DB
	)
	switch cfg.StoreBackend {
	case config.BackendGorm:
		db, err = database.ConnectDb(cfg, appLog)
		if err != nil {
			appLog.Fatal("Failed to connect to database", "error", err)
		}
		backend = store.NewGormStore(db, appLog)
		tokens = middleware.NewJWTIdentity(cfg.JWTKey)
		identity = tokens
	case config.BackendRest:
		client := store.NewRestClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.RequestTimeout)
		backend = store.NewRestStore(client, cfg.BackendAPIKey, appLog)
		identity = middleware.NewRestIdentity(client, appLog)
	default:
		appLog.Fatal("Unknown STORE_BACKEND", "backend", cfg.StoreBackend)
	}

	var catalogCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, "prolific:")
		if err != nil {
			appLog.Fatal("Invalid REDIS_URL", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rc.Ping(ctx); err != nil {
			appLog.Warn("Redis unreachable, catalog reads will miss", "error", err)
		}
		cancel()
		defer rc.Close()
		catalogCache = rc
	}
	cached := store.NewCachedStore(backend, catalogCache, cfg.CatalogCacheTTL, appLog)

	tracker := progress.NewTracker(cached, progress.UUIDGenerator{}, appLog)
	sessions := sequencer.NewRegistry()
	gate := middleware.AuthGate(identity, cfg.RequestTimeout)

	var mailer utils.Mailer = utils.NewLogMailer(appLog)
	if cfg.SendgridAPIKey != "" {
		mailer = utils.NewSendGridMailer(cfg.SendgridAPIKey, cfg.EmailSender, appLog)
	}

	app := fiber.New(fiber.Config{AppName: "prolific"})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	local := db != nil
	auth := authController.New(db, tokens, sessions, mailer, cfg.SaltRound, appLog)
	authRoutes.SetupAuthRoutes(app, auth, gate, local)
	courseRoutes.SetupCourseRoutes(app,
		courseController.New(cached, tracker, sessions, cfg.RequestTimeout, appLog),
		exerciseController.New(cached, tracker, sessions, progress.UUIDGenerator{}, cfg.RequestTimeout, appLog),
		gate,
	)
	userRoutes.SetupUserRoutes(app, userControllers.New(cached, cfg.RequestTimeout, appLog), gate)

	sweeper, err := utils.StartSessionSweeper(cfg.SessionSweepCron, sessions, cfg.SessionTTL, appLog)
	if err != nil {
		appLog.Fatal("Invalid SESSION_SWEEP_CRON", "spec", cfg.SessionSweepCron, "error", err)
	}

	var reminders *utils.ReminderScheduler
	if local {
		courseRoutes.SetupAdminCourseRoutes(app, courseController.NewAdmin(db, cached, cfg.CatalogArchiveDir, appLog), gate)

		reminders = utils.NewReminderScheduler(utils.NewGormReminderSource(db), mailer, appLog)
		if err := reminders.Start(cfg.ReminderCron); err != nil {
			appLog.Fatal("Invalid REMINDER_CRON", "spec", cfg.ReminderCron, "error", err)
		}
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		appLog.Info("Shutting down")
		<-sweeper.Stop().Done()
		if reminders != nil {
			reminders.Stop()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.Error("Shutdown failed", "error", err)
		}
	}()

	appLog.Info("Server is running", "port", cfg.Port, "backend", cfg.StoreBackend)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Fatal("Server stopped", "error", err)
	}
}
