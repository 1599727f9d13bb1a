package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-directory-backend/config"
)

// PublishUploadController merges a fully valid upload into the provider's
// live catalog. Search indexing happens after the commit; an indexing
// failure is logged but does not fail the publish.
func (uc *UploadController) PublishUploadController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	publishedBy := c.FormValue("published_by")
	if publishedBy == "" {
		var body struct {
			PublishedBy string `json:"published_by"`
		}
		if err := c.BodyParser(&body); err == nil {
			publishedBy = body.PublishedBy
		}
	}
	if publishedBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing 'published_by' field"})
	}

	result, err := uc.PublishRepo.PublishUpload(uploadID, publishedBy)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to publish upload")
	}

	if uc.BleveRepo != nil {
		for _, id := range result.UpsertedIDs {
			record, err := uc.PublishRepo.GetApprenticeship(id)
			if err != nil {
				config.Logger.Error("Failed to load published apprenticeship for indexing",
					zap.String("apprenticeship_id", id.String()),
					zap.Error(err))
				continue
			}
			if err := uc.BleveRepo.IndexSingleApprenticeship(*record); err != nil {
				config.Logger.Error("Failed to index published apprenticeship",
					zap.String("apprenticeship_id", id.String()),
					zap.Error(err))
			}
		}
		for _, id := range result.ArchivedIDs {
			if err := uc.BleveRepo.DeleteApprenticeship(id.String()); err != nil {
				config.Logger.Error("Failed to remove archived apprenticeship from index",
					zap.String("apprenticeship_id", id.String()),
					zap.Error(err))
			}
		}
	}

	config.Logger.Info("Upload published",
		zap.String("upload_id", uploadID.String()),
		zap.Int("published_count", result.PublishedCount),
		zap.Int("archived_count", len(result.ArchivedIDs)),
	)

	return c.JSON(fiber.Map{
		"message": "Upload published",
		"data": fiber.Map{
			"upload":          result.Upload,
			"published_count": result.PublishedCount,
			"archived_count":  len(result.ArchivedIDs),
		},
	})
}

// AbandonUploadController discards an in-flight upload and its rows.
func (uc *UploadController) AbandonUploadController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	upload, err := uc.UploadRepo.AbandonUpload(uploadID, time.Now().UTC())
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to abandon upload")
	}

	return c.JSON(fiber.Map{
		"message": "Upload abandoned",
		"data":    upload,
	})
}

// RevalidateUploadController re-checks rows whose reference data may have
// changed since the last validation pass.
func (uc *UploadController) RevalidateUploadController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	upload, staleRows, err := uc.Revalidator.RevalidateStaleRows(uploadID)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to revalidate upload")
	}
	if staleRows == nil {
		staleRows = []int{}
	}

	return c.JSON(fiber.Map{
		"message": "Upload revalidated",
		"data": fiber.Map{
			"upload":                upload,
			"revalidated_rows":      staleRows,
			"revalidated_row_count": len(staleRows),
		},
	})
}
