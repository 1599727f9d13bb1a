package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"course-directory-backend/config"
	"course-directory-backend/db/models"
)

const maxCleanupRetries = 3
const cleanupRetryDelay = 2 * time.Minute

// reportFileTTL is how long generated error reports stay downloadable.
const reportFileTTL = 24 * time.Hour

// terminalUploadTTL is how long a published or abandoned upload keeps its
// stored file before it is purged.
const terminalUploadTTL = 90 * 24 * time.Hour

// CleanupExpiredFiles deletes a file when it is older than the TTL.
func CleanupExpiredFiles(filePath string, ttl time.Duration) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error checking file: %v", err)
	}
	if time.Since(info.ModTime()) > ttl {
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("error deleting expired file: %v", err)
		}
	}
	return nil
}

// CleanupExpiredReports removes generated error report workbooks past their
// TTL.
func CleanupExpiredReports() error {
	files, err := os.ReadDir("./public/files")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading files directory: %v", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		filePath := fmt.Sprintf("./public/files/%s", file.Name())
		if err := CleanupExpiredFiles(filePath, reportFileTTL); err != nil {
			config.Logger.Warn("Failed to clean up report file",
				zap.String("file", filePath),
				zap.Error(err))
		}
	}
	return nil
}

// CleanupTerminalUploads deletes stored CSV files of uploads that reached a
// terminal state long enough ago, and clears the stored path so the download
// endpoint stops offering them.
func CleanupTerminalUploads(db *gorm.DB, storage FileStorage) error {
	cutoff := time.Now().UTC().Add(-terminalUploadTTL)

	var uploads []models.Upload
	err := db.Where("status IN ? AND updated_at < ? AND stored_file_path <> ''",
		[]models.UploadStatus{models.UploadStatusPublished, models.UploadStatusAbandoned}, cutoff).
		Find(&uploads).Error
	if err != nil {
		return fmt.Errorf("error listing terminal uploads: %v", err)
	}

	for i := range uploads {
		if err := storage.DeleteFile(uploads[i].StoredFilePath); err != nil {
			config.Logger.Warn("Failed to delete stored upload file",
				zap.String("upload_id", uploads[i].ID.String()),
				zap.Error(err))
			continue
		}
		if err := db.Model(&uploads[i]).Update("stored_file_path", "").Error; err != nil {
			return fmt.Errorf("error clearing stored path: %v", err)
		}
	}
	return nil
}

// CleanupAllExpired runs every cleanup task once.
func CleanupAllExpired(db *gorm.DB, storage FileStorage) error {
	if err := CleanupExpiredReports(); err != nil {
		return err
	}
	return CleanupTerminalUploads(db, storage)
}

// RunScheduledCleanup runs the cleanup tasks daily at 1 AM with retries.
func RunScheduledCleanup(db *gorm.DB, storage FileStorage) {
	c := cron.New()

	c.AddFunc("0 1 * * *", func() {
		config.Logger.Info("Running scheduled cleanup task")

		for retries := 0; retries < maxCleanupRetries; retries++ {
			err := CleanupAllExpired(db, storage)
			if err == nil {
				config.Logger.Info("Cleanup successful")
				return
			}
			config.Logger.Error("Cleanup attempt failed",
				zap.Int("attempt", retries+1),
				zap.Error(err))
			time.Sleep(cleanupRetryDelay)
		}
		config.Logger.Error("Cleanup failed after retries")
	})

	c.Start()
}
