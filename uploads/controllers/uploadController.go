package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	bleverepos "course-directory-backend/bleve/repositories"
	"course-directory-backend/uploads/repositories"
	"course-directory-backend/uploads/services"
	"course-directory-backend/utils"
)

type UploadController struct {
	Processor   *services.UploadProcessor
	Revalidator *services.RevalidationService
	UploadRepo  repositories.UploadRepository
	PublishRepo repositories.PublishRepository
	BleveRepo   bleverepos.BleveRepositoryInterface
	Storage     utils.FileStorage
}

// StartUploadController accepts a multipart CSV file, runs file-level checks
// and creates the upload. File-level failures come back as 400 with the
// failure details and nothing persisted.
func (uc *UploadController) StartUploadController(c *fiber.Ctx) error {
	rawProvider := c.Params("providerId")
	if rawProvider == "" {
		rawProvider = c.FormValue("provider_id")
	}
	providerID, err := uuid.Parse(rawProvider)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid provider id"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Failed to get file"})
	}

	createdBy := c.FormValue("created_by")
	if createdBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing 'created_by' field in FormData"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to open file"})
	}
	defer f.Close()

	upload, err := uc.Processor.StartUpload(providerID, fileHeader.Filename, f, createdBy)
	if err != nil {
		if fe, ok := services.AsFileError(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": fe.Error(),
				"error": fiber.Map{
					"code":            fe.Code,
					"missing_headers": fe.MissingHeaders,
					"duplicate_rows":  fe.DuplicateRows,
				},
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to start upload",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Upload created",
		"data":    upload,
	})
}

// GetUploadController returns an upload with its row error summary.
func (uc *UploadController) GetUploadController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	upload, err := uc.UploadRepo.GetUpload(uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Upload not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch upload",
			"error":   err.Error(),
		})
	}

	invalid, err := uc.UploadRepo.InvalidRowCount(uploadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to count invalid rows",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Upload retrieved",
		"data": fiber.Map{
			"upload":            upload,
			"invalid_row_count": invalid,
		},
	})
}

// GetLatestUploadController returns the provider's most recent upload.
func (uc *UploadController) GetLatestUploadController(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("providerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid provider id"})
	}

	upload, err := uc.UploadRepo.GetLatestUpload(providerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "No uploads for provider"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch upload",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Upload retrieved",
		"data":    upload,
	})
}
