package main

import (
	"flag"
	"os"

	"prolific/config"
	"prolific/database"
	"prolific/logger"
)

// Loads a catalog YAML file into the configured SQL database:
//
//	go run ./scripts -file content/catalog.yaml
func main() {
	file := flag.String("file", "catalog.yaml", "catalog YAML file")
	dryRun := flag.Bool("dry-run", false, "validate without writing")
	flag.Parse()

	cfg := config.LoadConfig()
	log, err := logger.New(cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	sf, err := database.LoadSeedFile(*file)
	if err != nil {
		log.Fatal("Failed to read catalog file", "file", *file, "error", err)
	}
	cat, err := sf.Flatten()
	if err != nil {
		log.Fatal("Catalog file is invalid", "file", *file, "error", err)
	}
	log.Info("Catalog file is valid",
		"topics", len(cat.Topics),
		"courses", len(cat.Courses),
		"exercises", len(cat.Exercises),
		"steps", len(cat.Steps),
	)
	if *dryRun {
		return
	}

	if cfg.StoreBackend != config.BackendGorm {
		log.Error("Import writes to the SQL database only", "store_backend", cfg.StoreBackend)
		os.Exit(2)
	}
	db, err := database.ConnectDb(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect database", "error", err)
	}
	if err := database.ImportCatalog(db, cat, log); err != nil {
		log.Fatal("Import failed", "error", err)
	}
}
