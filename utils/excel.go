package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrorReportRow is one line of the validation error report workbook: one
// entry per error on a row, so a row with three errors appears three times.
type ErrorReportRow struct {
	RowNumber  int
	FieldGroup string
	ErrorCode  string
	Message    string
}

// EnsureDirectoryExists creates the directory of filePath if missing.
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory: %v", err)
		}
	}
	return nil
}

// GenerateErrorReport writes the validation errors of an upload into an
// Excel workbook under ./public/files and returns the file path.
func GenerateErrorReport(rows []ErrorReportRow, reportName string) (string, error) {
	filePath := fmt.Sprintf("./public/files/%s_%s.xlsx", reportName, time.Now().UTC().Format("20060102_150405"))
	if err := EnsureDirectoryExists(filePath); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Row", "Section", "Error Code", "Error"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("error setting header %s: %v", header, err)
		}
	}

	for i, row := range rows {
		values := []interface{}{row.RowNumber, row.FieldGroup, row.ErrorCode, row.Message}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("error writing row %d: %v", row.RowNumber, err)
			}
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving report: %v", err)
	}
	return filePath, nil
}
