package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-directory-backend/uploads/services"
	"course-directory-backend/utils"
)

// DownloadErrorReportController builds an Excel workbook of the upload's
// validation errors and returns a link to it.
func (uc *UploadController) DownloadErrorReportController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	upload, err := uc.UploadRepo.GetUpload(uploadID)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to fetch upload")
	}
	if !upload.Status.IsProcessed() && !upload.Status.IsTerminal() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Upload has not finished processing"})
	}

	rows, err := uc.UploadRepo.GetRows(uploadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch rows",
			"error":   err.Error(),
		})
	}

	var reportRows []utils.ErrorReportRow
	for i := range rows {
		codes, err := rows[i].GetErrorCodes()
		if err != nil {
			continue
		}
		for _, code := range codes {
			detail := services.ErrorDetailFor(code)
			reportRows = append(reportRows, utils.ErrorReportRow{
				RowNumber:  rows[i].RowNumber,
				FieldGroup: string(detail.FieldGroup),
				ErrorCode:  code,
				Message:    detail.Message,
			})
		}
	}

	if len(reportRows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Upload has no validation errors"})
	}

	filePath, err := utils.GenerateErrorReport(reportRows, fmt.Sprintf("upload_errors_%s", uploadID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to generate error report",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Error report generated",
		"download_url": utils.GetDownloadURL(c, filePath),
	})
}

// DownloadFileController streams back the upload's current rows as CSV, so a
// provider gets their file with any in-place row edits applied.
func (uc *UploadController) DownloadFileController(c *fiber.Ctx) error {
	uploadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid upload id"})
	}

	upload, err := uc.UploadRepo.GetUpload(uploadID)
	if err != nil {
		return uploadErrorResponse(c, err, "Failed to fetch upload")
	}

	rows, err := uc.UploadRepo.GetRows(uploadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch rows",
			"error":   err.Error(),
		})
	}

	// Rows are deleted for terminal uploads, so fall back to the stored file.
	if len(rows) == 0 {
		f, err := uc.Storage.OpenFile(upload.StoredFilePath)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "File no longer available"})
		}
		defer f.Close()
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, upload.FileName))
		return c.SendStream(f)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	columns := services.AllColumns()
	if err := w.Write(columns); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to write CSV"})
	}
	for i := range rows {
		fields := rows[i].RawFieldMap()
		record := make([]string, len(columns))
		for j, col := range columns {
			record[j] = fields[col]
		}
		if err := w.Write(record); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to write CSV"})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to write CSV"})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, upload.FileName))
	return c.Send(buf.Bytes())
}
