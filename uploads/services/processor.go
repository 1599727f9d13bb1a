package services

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-directory-backend/config"
	"course-directory-backend/db/models"
	refservices "course-directory-backend/reference/services"
	"course-directory-backend/uploads/repositories"
	"course-directory-backend/utils"
)

// Enqueuer hands an upload off to the background queue for processing.
type Enqueuer interface {
	EnqueueProcessUpload(uploadID uuid.UUID) error
}

// UploadProcessor drives an upload from file submission through validation.
// Files at or under syncRowLimit rows are processed inline so small uploads
// come back validated in one request; larger ones go to the queue.
type UploadProcessor struct {
	uploadRepo   repositories.UploadRepository
	snapshots    *refservices.SnapshotProvider
	storage      utils.FileStorage
	enqueuer     Enqueuer
	syncRowLimit int
}

func NewUploadProcessor(
	uploadRepo repositories.UploadRepository,
	snapshots *refservices.SnapshotProvider,
	storage utils.FileStorage,
	enqueuer Enqueuer,
	syncRowLimit int,
) *UploadProcessor {
	return &UploadProcessor{
		uploadRepo:   uploadRepo,
		snapshots:    snapshots,
		storage:      storage,
		enqueuer:     enqueuer,
		syncRowLimit: syncRowLimit,
	}
}

// StartUpload parses the submitted file, rejects file-level failures before
// anything is persisted, then creates the upload and either processes it
// inline or queues it. The returned upload is in a processed state for small
// files and created/processing for queued ones.
func (p *UploadProcessor) StartUpload(providerID uuid.UUID, fileName string, file io.Reader, createdBy string) (*models.Upload, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	rows, err := ParseApprenticeshipCSV(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	storedName := fmt.Sprintf("uploads/%s/%s.csv", providerID, uuid.New())
	storedPath, err := p.storage.SaveFile(bytes.NewReader(content), storedName)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	upload := &models.Upload{
		ProviderID:     providerID,
		Status:         models.UploadStatusCreated,
		FileName:       fileName,
		StoredFilePath: storedPath,
		TotalRowCount:  len(rows),
		CreatedBy:      createdBy,
	}
	if _, err := p.uploadRepo.CreateUpload(upload); err != nil {
		p.storage.DeleteFile(storedPath)
		return nil, err
	}

	config.Logger.Info("Upload created",
		zap.String("upload_id", upload.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Int("row_count", len(rows)),
	)

	if len(rows) <= p.syncRowLimit {
		if err := p.ProcessUpload(upload.ID); err != nil {
			return nil, err
		}
		return p.uploadRepo.GetUpload(upload.ID)
	}

	if err := p.enqueuer.EnqueueProcessUpload(upload.ID); err != nil {
		return nil, fmt.Errorf("failed to queue upload for processing: %w", err)
	}
	return p.uploadRepo.GetUpload(upload.ID)
}

// ProcessUpload runs the full validation pass for an upload: re-read the
// stored file, take one reference snapshot, validate every row against it,
// assign groups and store the rows. Safe to call from both the inline path
// and the queue worker; a second caller loses the created -> processing race
// and gets ErrUploadConflict.
func (p *UploadProcessor) ProcessUpload(uploadID uuid.UUID) error {
	started := time.Now().UTC()
	upload, err := p.uploadRepo.BeginProcessing(uploadID, started)
	if err != nil {
		return err
	}

	f, err := p.storage.OpenFile(upload.StoredFilePath)
	if err != nil {
		return fmt.Errorf("failed to open stored upload: %w", err)
	}
	defer f.Close()

	raws, err := ParseApprenticeshipCSV(f)
	if err != nil {
		// The file already parsed once at submission, so this is corruption
		// of the stored copy rather than user input.
		return fmt.Errorf("stored upload no longer parses: %w", err)
	}

	snap, err := p.snapshots.Snapshot(upload.ProviderID)
	if err != nil {
		return fmt.Errorf("failed to load reference snapshot: %w", err)
	}

	resolved := ValidateRows(raws, snap)
	AssignGroups(resolved)

	rows := make([]models.UploadRow, len(resolved))
	invalid := 0
	for i := range resolved {
		row, err := buildUploadRow(uploadID, &resolved[i], snap.FetchedAt)
		if err != nil {
			return err
		}
		rows[i] = *row
		if !resolved[i].Valid() {
			invalid++
		}
	}

	if err := p.uploadRepo.InsertRows(uploadID, rows); err != nil {
		return err
	}

	status := models.UploadStatusProcessedSuccessfully
	if invalid > 0 {
		status = models.UploadStatusProcessedWithErrors
	}
	if err := p.uploadRepo.CompleteProcessing(uploadID, status, len(rows), time.Now().UTC()); err != nil {
		return err
	}

	config.Logger.Info("Upload processed",
		zap.String("upload_id", uploadID.String()),
		zap.Int("total_rows", len(rows)),
		zap.Int("invalid_rows", invalid),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// ResolveRow applies a provider's edits to one row and revalidates just that
// row against a fresh snapshot. The row keeps its group id while its group
// key is unchanged; a changed key joins an existing sibling group or founds a
// new one.
func (p *UploadProcessor) ResolveRow(uploadID uuid.UUID, rowNumber int, edits map[string]string) (*models.UploadRow, *models.Upload, error) {
	upload, err := p.uploadRepo.GetUpload(uploadID)
	if err != nil {
		return nil, nil, err
	}
	if !upload.Status.IsProcessed() {
		return nil, nil, repositories.ErrUploadConflict
	}

	row, err := p.uploadRepo.GetRow(uploadID, rowNumber)
	if err != nil {
		return nil, nil, err
	}

	fields := row.RawFieldMap()
	for _, col := range allColumns {
		if v, ok := edits[col]; ok {
			fields[col] = v
		}
	}

	snap, err := p.snapshots.Snapshot(upload.ProviderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reference snapshot: %w", err)
	}

	resolved := ValidateRow(RawRow{RowNumber: rowNumber, Fields: fields}, snap)

	if resolved.GroupKey != row.GroupKey {
		groupID, err := p.groupIDForKey(uploadID, rowNumber, resolved.GroupKey)
		if err != nil {
			return nil, nil, err
		}
		row.GroupID = groupID
		row.GroupKey = resolved.GroupKey
	}

	if err := applyResolved(row, &resolved, snap.FetchedAt); err != nil {
		return nil, nil, err
	}
	if err := p.uploadRepo.UpdateRow(uploadID, row); err != nil {
		return nil, nil, err
	}

	refreshed, err := p.uploadRepo.RefreshStatusFromRows(uploadID)
	if err != nil {
		return nil, nil, err
	}
	return row, refreshed, nil
}

// DeleteRow removes one row and refreshes the upload's status from the rows
// that remain. The returned count is how many invalid rows are left.
func (p *UploadProcessor) DeleteRow(uploadID uuid.UUID, rowNumber int) (*models.Upload, int64, error) {
	remaining, err := p.uploadRepo.DeleteRow(uploadID, rowNumber)
	if err != nil {
		return nil, 0, err
	}
	upload, err := p.uploadRepo.RefreshStatusFromRows(uploadID)
	return upload, remaining, err
}

// groupIDForKey finds the group id other rows of the upload already use for
// a key, minting a new one for a first occurrence or a blank key.
func (p *UploadProcessor) groupIDForKey(uploadID uuid.UUID, rowNumber int, key string) (uuid.UUID, error) {
	if key == "" {
		return uuid.New(), nil
	}
	rows, err := p.uploadRepo.GetRows(uploadID)
	if err != nil {
		return uuid.Nil, err
	}
	for i := range rows {
		if rows[i].RowNumber != rowNumber && rows[i].GroupKey == key {
			return rows[i].GroupID, nil
		}
	}
	return uuid.New(), nil
}

func buildUploadRow(uploadID uuid.UUID, resolved *ResolvedRow, validatedAt time.Time) (*models.UploadRow, error) {
	row := &models.UploadRow{
		UploadID:  uploadID,
		RowNumber: resolved.RowNumber,
		GroupID:   resolved.GroupID,
		GroupKey:  resolved.GroupKey,
	}
	if err := applyResolved(row, resolved, validatedAt); err != nil {
		return nil, err
	}
	return row, nil
}

// applyResolved copies a validation outcome onto a row model.
func applyResolved(row *models.UploadRow, resolved *ResolvedRow, validatedAt time.Time) error {
	raw := make(map[string]interface{}, len(resolved.Fields))
	for k, v := range resolved.Fields {
		raw[k] = v
	}
	row.RawFields = raw
	if err := row.SetResolution(resolved.Resolution); err != nil {
		return err
	}
	if err := row.SetErrorCodes(resolved.ErrorCodes); err != nil {
		return err
	}
	row.LastValidatedOn = validatedAt
	return nil
}
