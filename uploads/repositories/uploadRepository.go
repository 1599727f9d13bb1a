package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-directory-backend/db/models"
)

var (
	// ErrUploadNotFound means no upload row exists for the id.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrUploadConflict means the upload's status does not admit the
	// requested transition or write.
	ErrUploadConflict = errors.New("upload is not in a state that allows this operation")
	// ErrRowNotFound means the upload exists but the row number does not.
	ErrRowNotFound = errors.New("upload row not found")
)

// RowFilters narrows GetFilteredRows.
type RowFilters struct {
	ErrorsOnly bool
	GroupID    *uuid.UUID
}

type UploadRepository interface {
	// CreateUpload persists a new upload, abandoning any non-terminal upload
	// the provider already has. A provider has at most one active upload.
	CreateUpload(upload *models.Upload) (*models.Upload, error)
	GetUpload(id uuid.UUID) (*models.Upload, error)
	GetLatestUpload(providerID uuid.UUID) (*models.Upload, error)

	// BeginProcessing transitions created -> processing; ErrUploadConflict if
	// another worker got there first.
	BeginProcessing(id uuid.UUID, startedAt time.Time) (*models.Upload, error)
	CompleteProcessing(id uuid.UUID, status models.UploadStatus, totalRows int, completedAt time.Time) error

	// InsertRows stores the validated rows. The write is fenced on the upload
	// still being in processing, so a concurrent abandon wins cleanly.
	InsertRows(uploadID uuid.UUID, rows []models.UploadRow) error

	GetRows(uploadID uuid.UUID) ([]models.UploadRow, error)
	GetFilteredRows(uploadID uuid.UUID, filters RowFilters, limit, offset int) ([]models.UploadRow, int64, error)
	GetRow(uploadID uuid.UUID, rowNumber int) (*models.UploadRow, error)
	GetRowsByGroup(uploadID, groupID uuid.UUID) ([]models.UploadRow, error)

	// UpdateRow rewrites one row's fields, resolution and errors. Fenced on
	// the upload being in a processed state.
	UpdateRow(uploadID uuid.UUID, row *models.UploadRow) error
	// UpdateRows batch-rewrites rows inside one transaction with the same
	// fence, used by revalidation.
	UpdateRows(uploadID uuid.UUID, rows []models.UploadRow) error
	// DeleteRow removes a row and returns the number of invalid rows left.
	DeleteRow(uploadID uuid.UUID, rowNumber int) (int64, error)

	InvalidRowCount(uploadID uuid.UUID) (int64, error)
	RefreshStatusFromRows(uploadID uuid.UUID) (*models.Upload, error)

	AbandonUpload(id uuid.UUID, abandonedAt time.Time) (*models.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) CreateUpload(upload *models.Upload) (*models.Upload, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var existing []models.Upload
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider_id = ? AND status IN ?", upload.ProviderID, models.NonTerminalStatuses()).
			Find(&existing).Error; err != nil {
			return err
		}
		for i := range existing {
			existing[i].Status = models.UploadStatusAbandoned
			existing[i].AbandonedOn = &now
			if err := tx.Save(&existing[i]).Error; err != nil {
				return err
			}
			if err := tx.Where("upload_id = ?", existing[i].ID).Delete(&models.UploadRow{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(upload).Error
	})
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepository) GetUpload(id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) GetLatestUpload(providerID uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.Where("provider_id = ?", providerID).
		Order("created_at DESC").
		First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) BeginProcessing(id uuid.UUID, startedAt time.Time) (*models.Upload, error) {
	res := r.db.Model(&models.Upload{}).
		Where("id = ? AND status = ?", id, models.UploadStatusCreated).
		Updates(map[string]interface{}{
			"status":                models.UploadStatusProcessing,
			"processing_started_on": startedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetUpload(id); err != nil {
			return nil, err
		}
		return nil, ErrUploadConflict
	}
	return r.GetUpload(id)
}

func (r *uploadRepository) CompleteProcessing(id uuid.UUID, status models.UploadStatus, totalRows int, completedAt time.Time) error {
	res := r.db.Model(&models.Upload{}).
		Where("id = ? AND status = ?", id, models.UploadStatusProcessing).
		Updates(map[string]interface{}{
			"status":                  status,
			"total_row_count":         totalRows,
			"processing_completed_on": completedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUploadConflict
	}
	return nil
}

func (r *uploadRepository) InsertRows(uploadID uuid.UUID, rows []models.UploadRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var upload models.Upload
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&upload, "id = ?", uploadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUploadNotFound
			}
			return err
		}
		if upload.Status != models.UploadStatusProcessing {
			return ErrUploadConflict
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (r *uploadRepository) GetRows(uploadID uuid.UUID) ([]models.UploadRow, error) {
	var rows []models.UploadRow
	err := r.db.Where("upload_id = ?", uploadID).
		Order("row_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *uploadRepository) GetFilteredRows(uploadID uuid.UUID, filters RowFilters, limit, offset int) ([]models.UploadRow, int64, error) {
	query := r.db.Model(&models.UploadRow{}).Where("upload_id = ?", uploadID)
	if filters.ErrorsOnly {
		query = query.Where("is_valid = ?", false)
	}
	if filters.GroupID != nil {
		query = query.Where("group_id = ?", *filters.GroupID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.UploadRow
	err := query.Order("row_number ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func (r *uploadRepository) GetRow(uploadID uuid.UUID, rowNumber int) (*models.UploadRow, error) {
	var row models.UploadRow
	err := r.db.Where("upload_id = ? AND row_number = ?", uploadID, rowNumber).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *uploadRepository) GetRowsByGroup(uploadID, groupID uuid.UUID) ([]models.UploadRow, error) {
	var rows []models.UploadRow
	err := r.db.Where("upload_id = ? AND group_id = ?", uploadID, groupID).
		Order("row_number ASC").
		Find(&rows).Error
	return rows, err
}

// lockProcessedUpload locks the upload row and checks it is editable.
func lockProcessedUpload(tx *gorm.DB, uploadID uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&upload, "id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	if !upload.Status.IsProcessed() {
		return nil, ErrUploadConflict
	}
	return &upload, nil
}

func (r *uploadRepository) UpdateRow(uploadID uuid.UUID, row *models.UploadRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockProcessedUpload(tx, uploadID); err != nil {
			return err
		}
		return tx.Save(row).Error
	})
}

func (r *uploadRepository) UpdateRows(uploadID uuid.UUID, rows []models.UploadRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockProcessedUpload(tx, uploadID); err != nil {
			return err
		}
		for i := range rows {
			if err := tx.Save(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *uploadRepository) DeleteRow(uploadID uuid.UUID, rowNumber int) (int64, error) {
	var remaining int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockProcessedUpload(tx, uploadID); err != nil {
			return err
		}
		res := tx.Where("upload_id = ? AND row_number = ?", uploadID, rowNumber).
			Delete(&models.UploadRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRowNotFound
		}
		return tx.Model(&models.UploadRow{}).
			Where("upload_id = ? AND is_valid = ?", uploadID, false).
			Count(&remaining).Error
	})
	return remaining, err
}

func (r *uploadRepository) InvalidRowCount(uploadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.UploadRow{}).
		Where("upload_id = ? AND is_valid = ?", uploadID, false).
		Count(&count).Error
	return count, err
}

// RefreshStatusFromRows recomputes a processed upload's status from its rows
// after an edit, delete or revalidation changed row validity. The two
// processed states are deliberately revisited here rather than frozen at the
// end of the processing pass, so the status always answers "any invalid rows
// right now". Publish and abandon remain the only exits.
func (r *uploadRepository) RefreshStatusFromRows(uploadID uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockProcessedUpload(tx, uploadID)
		if err != nil {
			return err
		}
		var invalid int64
		if err := tx.Model(&models.UploadRow{}).
			Where("upload_id = ? AND is_valid = ?", uploadID, false).
			Count(&invalid).Error; err != nil {
			return err
		}
		var total int64
		if err := tx.Model(&models.UploadRow{}).
			Where("upload_id = ?", uploadID).
			Count(&total).Error; err != nil {
			return err
		}
		status := models.UploadStatusProcessedSuccessfully
		if invalid > 0 {
			status = models.UploadStatusProcessedWithErrors
		}
		locked.Status = status
		locked.TotalRowCount = int(total)
		if err := tx.Save(locked).Error; err != nil {
			return err
		}
		upload = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) AbandonUpload(id uuid.UUID, abandonedAt time.Time) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&upload, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUploadNotFound
			}
			return err
		}
		if upload.Status.IsTerminal() {
			return ErrUploadConflict
		}
		upload.Status = models.UploadStatusAbandoned
		upload.AbandonedOn = &abandonedAt
		if err := tx.Save(&upload).Error; err != nil {
			return err
		}
		return tx.Where("upload_id = ?", id).Delete(&models.UploadRow{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &upload, nil
}
