package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-directory-backend/uploads/repositories"
	"course-directory-backend/uploads/services"
	"course-directory-backend/utils/pagination"
)

// rowView is the API shape of an upload row: raw fields plus the error list
// expanded into display details.
type rowView struct {
	RowNumber  int                 `json:"row_number"`
	GroupID    uuid.UUID           `json:"group_id"`
	IsValid    bool                `json:"is_valid"`
	Fields     map[string]string   `json:"fields"`
	Resolution interface{}         `json:"resolution"`
	Errors     []map[string]string `json:"errors"`
}

// GetRowsController lists an upload's rows with optional errors_only and
// group_id filters.
func (uc *UploadController) GetRowsController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	filters := repositories.RowFilters{
		ErrorsOnly: params.Filters["errors_only"] == "true",
	}
	if g := params.Filters["group_id"]; g != "" {
		groupID, err := uuid.Parse(g)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid group id"})
		}
		filters.GroupID = &groupID
	}

	offset := (params.Page - 1) * params.PageSize
	rows, total, err := uc.UploadRepo.GetFilteredRows(uploadID, filters, params.PageSize, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch rows",
			"error":   err.Error(),
		})
	}

	views := make([]rowView, 0, len(rows))
	for i := range rows {
		res, _ := rows[i].GetResolution()
		codes, _ := rows[i].GetErrorCodes()
		errs := make([]map[string]string, 0, len(codes))
		for _, code := range codes {
			detail := services.ErrorDetailFor(code)
			errs = append(errs, map[string]string{
				"code":        code,
				"message":     detail.Message,
				"field_group": string(detail.FieldGroup),
			})
		}
		views = append(views, rowView{
			RowNumber:  rows[i].RowNumber,
			GroupID:    rows[i].GroupID,
			IsValid:    rows[i].IsValid,
			Fields:     rows[i].RawFieldMap(),
			Resolution: res,
			Errors:     errs,
		})
	}

	return c.JSON(pagination.NewPaginatedResponse(c, views, total, params))
}

// UpdateRowController applies field edits to one row and revalidates it.
func (uc *UploadController) UpdateRowController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}
	rowNumber, err := c.ParamsInt("rowNumber")
	if err != nil || rowNumber < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid row number"})
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Request must contain field edits"})
	}

	row, upload, err := uc.Processor.ResolveRow(uploadID, rowNumber, body.Fields)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to update row")
	}

	codes, _ := row.GetErrorCodes()
	return c.JSON(fiber.Map{
		"message": "Row updated",
		"data": fiber.Map{
			"row":           row,
			"error_codes":   codes,
			"upload_status": upload.Status,
		},
	})
}

// DeleteRowController removes one row from the upload.
func (uc *UploadController) DeleteRowController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}
	rowNumber, err := c.ParamsInt("rowNumber")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid row number"})
	}

	upload, remainingErrors, err := uc.Processor.DeleteRow(uploadID, rowNumber)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to delete row")
	}

	return c.JSON(fiber.Map{
		"message": "Row deleted",
		"data": fiber.Map{
			"upload_status":        upload.Status,
			"total_row_count":      upload.TotalRowCount,
			"remaining_error_rows": remainingErrors,
		},
	})
}

// uploadErrorResponse maps repository sentinels onto HTTP statuses.
func uploadErrorResponse(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, repositories.ErrUploadNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Upload not found"})
	case errors.Is(err, repositories.ErrRowNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Row not found"})
	case errors.Is(err, repositories.ErrUploadConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Upload does not allow this operation in its current state"})
	case errors.Is(err, repositories.ErrUploadNotReady):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Upload still has rows with errors"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
