package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadStatus tracks the lifecycle of a bulk upload. Transitions are
// one-directional: created -> processing -> processed_* -> published|abandoned.
type UploadStatus string

const (
	UploadStatusCreated               UploadStatus = "created"
	UploadStatusProcessing            UploadStatus = "processing"
	UploadStatusProcessedSuccessfully UploadStatus = "processed_successfully"
	UploadStatusProcessedWithErrors   UploadStatus = "processed_with_errors"
	UploadStatusPublished             UploadStatus = "published"
	UploadStatusAbandoned             UploadStatus = "abandoned"
)

// IsTerminal reports whether the upload can no longer change.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusPublished || s == UploadStatusAbandoned
}

// IsProcessed reports whether a full processing pass has completed.
func (s UploadStatus) IsProcessed() bool {
	return s == UploadStatusProcessedSuccessfully || s == UploadStatusProcessedWithErrors
}

// NonTerminalStatuses lists every status an in-flight upload can hold.
func NonTerminalStatuses() []UploadStatus {
	return []UploadStatus{
		UploadStatusCreated,
		UploadStatusProcessing,
		UploadStatusProcessedSuccessfully,
		UploadStatusProcessedWithErrors,
	}
}

// Upload represents one submitted apprenticeship CSV file and its
// processing/publish lifecycle. At most one non-terminal upload exists per
// provider at any time.
type Upload struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key;" json:"id"`
	ProviderID uuid.UUID    `gorm:"type:uuid;not null;index" json:"provider_id"`
	Status     UploadStatus `gorm:"type:varchar(30);not null;index" json:"status"`

	// Original file details, kept so the submitted file can be re-read by the
	// background worker and downloaded back by the provider.
	FileName       string `gorm:"not null" json:"file_name"`
	StoredFilePath string `gorm:"not null" json:"-"`
	TotalRowCount  int    `gorm:"default:0" json:"total_row_count"`

	// Lifecycle timestamps, each set exactly once.
	ProcessingStartedOn   *time.Time `json:"processing_started_on"`
	ProcessingCompletedOn *time.Time `json:"processing_completed_on"`
	PublishedOn           *time.Time `json:"published_on"`
	AbandonedOn           *time.Time `json:"abandoned_on"`

	// Audit fields
	CreatedBy string    `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Rows []UploadRow `gorm:"foreignKey:UploadID" json:"rows,omitempty"`
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
