package courseController

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"prolific/database"
	"prolific/logger"
	"prolific/middleware"
	"prolific/utils"
)

const maxCatalogBytes = 4 << 20

// CatalogInvalidator drops cached catalog rows after an import.
type CatalogInvalidator interface {
	Forget(ctx context.Context, topicIDs, courseIDs []string)
}

// AdminController lets authors replace catalog rows from a seed file.
// Only available on the local database backend.
type AdminController struct {
	db         *gorm.DB
	cache      CatalogInvalidator
	archiveDir string
	log        *logger.Logger
}

func NewAdmin(db *gorm.DB, cache CatalogInvalidator, archiveDir string, baseLog *logger.Logger) *AdminController {
	return &AdminController{db: db, cache: cache, archiveDir: archiveDir, log: baseLog.With("controller", "adminContent")}
}

// ImportCatalog accepts a multipart "catalog" YAML file and upserts its rows.
// With dry_run=true the file is only validated.
func (h *AdminController) ImportCatalog(c *fiber.Ctx) error {
	file, err := c.FormFile("catalog")
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"catalog": "catalog file is required"})
	}
	data, err := utils.ReadUploadedFile(file, maxCatalogBytes)
	if err != nil {
		if errors.Is(err, utils.ErrFileTooLarge) {
			return middleware.JsonResponse(c, fiber.StatusRequestEntityTooLarge, false, "Catalog file is too large!", nil)
		}
		h.log.Error("Error reading upload", "error", err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to read catalog file!", nil)
	}

	seed, err := database.DecodeSeed(bytes.NewReader(data))
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"catalog": err.Error()})
	}
	catalog, err := seed.Flatten()
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"catalog": err.Error()})
	}

	counts := fiber.Map{
		"topics":    len(catalog.Topics),
		"courses":   len(catalog.Courses),
		"exercises": len(catalog.Exercises),
		"steps":     len(catalog.Steps),
		"audio":     len(catalog.Audio),
	}
	if c.QueryBool("dry_run") {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Catalog is valid.", counts)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), time.Minute)
	defer cancel()
	if err := database.ImportCatalog(h.db.WithContext(ctx), catalog, h.log); err != nil {
		h.log.Error("Error importing catalog", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to import catalog!", nil)
	}

	if path, err := utils.ArchiveUpload(data, file.Filename, h.archiveDir); err != nil {
		h.log.Warn("Catalog not archived", "error", err)
	} else {
		counts["archived_as"] = path
	}

	if h.cache != nil {
		topicIDs := make([]string, len(catalog.Topics))
		for i, t := range catalog.Topics {
			topicIDs[i] = t.ID
		}
		courseIDs := make([]string, len(catalog.Courses))
		for i, co := range catalog.Courses {
			courseIDs[i] = co.ID
		}
		h.cache.Forget(ctx, topicIDs, courseIDs)
	}

	h.log.Info("Catalog uploaded", "by", middleware.UserID(c), "file", file.Filename)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Catalog imported successfully!", counts)
}
