package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-directory-backend/reference/repositories"
	"course-directory-backend/utils/pagination"
)

type ReferenceController struct {
	ReferenceRepo repositories.ReferenceRepository
}

// GetVenuesController lists a provider's venues with optional name/status
// filters.
func (rc *ReferenceController) GetVenuesController(c *fiber.Ctx) error {
	providerID, err := uuid.Parse(c.Params("providerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid provider id"})
	}

	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	offset := (params.Page - 1) * params.PageSize
	venues, total, err := rc.ReferenceRepo.GetFilteredVenues(providerID, params.PageSize, offset, params.Filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch venues",
			"error":   err.Error(),
		})
	}

	return c.JSON(pagination.NewPaginatedResponse(c, venues, total, params))
}

// GetRegionsController returns the full two-level region tree.
func (rc *ReferenceController) GetRegionsController(c *fiber.Ctx) error {
	regions, err := rc.ReferenceRepo.GetRegions()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch regions",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Regions retrieved",
		"data":    regions,
	})
}

func (rc *ReferenceController) GetStandardsController(c *fiber.Ctx) error {
	standards, err := rc.ReferenceRepo.GetStandards()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch standards",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Standards retrieved",
		"data":    standards,
	})
}

func (rc *ReferenceController) GetFrameworksController(c *fiber.Ctx) error {
	frameworks, err := rc.ReferenceRepo.GetFrameworks()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch frameworks",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Frameworks retrieved",
		"data":    frameworks,
	})
}
