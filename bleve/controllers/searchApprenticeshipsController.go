package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"course-directory-backend/bleve/repositories"
)

type SearchController struct {
	Repo repositories.BleveRepositoryInterface
}

func (c *SearchController) SearchApprenticeshipsController(ctx *fiber.Ctx) error {
	queryStr := ctx.Query("q")
	providerID := ctx.Query("provider_id")
	status := ctx.Query("status")

	size := 50
	if sizeStr := ctx.Query("size"); sizeStr != "" {
		val, err := strconv.Atoi(sizeStr)
		if err != nil || val < 1 {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid 'size' value",
			})
		}
		size = val
	}

	results, err := c.Repo.SearchApprenticeships(queryStr, providerID, status, size)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	var matches []interface{}
	for _, hit := range results.Hits {
		doc, err := c.Repo.GetApprenticeshipDocument(hit.ID)
		if err != nil {
			continue
		}
		matches = append(matches, doc)
	}

	return ctx.JSON(fiber.Map{
		"results": matches,
		"total":   results.Total,
	})
}
