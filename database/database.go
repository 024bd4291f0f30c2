package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"prolific/config"
	"prolific/logger"
	"prolific/models"
)

// dialector picks the GORM driver named by cfg.DBDriver.
func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "sqlite", "":
		return sqlite.Open(cfg.DBName), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// ConnectDb opens the configured database, sets up pooling and runs
// migrations.
func ConnectDb(cfg *config.Config, baseLog *logger.Logger) (*gorm.DB, error) {
	log := baseLog.With("component", "database", "driver", cfg.DBDriver)

	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if cfg.Mode == "prod" || cfg.Mode == "test" {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(d, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.DBDriver == "sqlite" || cfg.DBDriver == "" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(0)

	if err := RunMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table the service owns.
func RunMigrations(db *gorm.DB, log *logger.Logger) error {
	log.Info("Running migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.LoginTracking{},
		&models.Topic{},
		&models.Course{},
		&models.Exercise{},
		&models.Step{},
		&models.AudioAsset{},
		&models.UserProgress{},
		&models.StepAttempt{},
		&models.UserPreferences{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("Migrations completed")
	return nil
}
