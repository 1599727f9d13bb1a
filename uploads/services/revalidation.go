package services

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-directory-backend/config"
	"course-directory-backend/db/models"
	refservices "course-directory-backend/reference/services"
	"course-directory-backend/uploads/repositories"
)

// SelectStaleRows picks the rows of a processed upload whose validation
// outcome could have changed since they were last validated, judged against
// a fresh snapshot. Rows whose errors depend only on the text of the file
// are never selected; their outcome cannot drift.
func SelectStaleRows(rows []models.UploadRow, snap *refservices.Snapshot) []int {
	var stale []int
	for i := range rows {
		if rowIsStale(&rows[i], snap) {
			stale = append(stale, rows[i].RowNumber)
		}
	}
	return stale
}

func rowIsStale(row *models.UploadRow, snap *refservices.Snapshot) bool {
	res, err := row.GetResolution()
	if err != nil {
		return true
	}

	// A resolved venue that vanished, was archived or changed under the row.
	if res.VenueID != nil {
		venue := snap.VenueByID(*res.VenueID)
		if venue == nil {
			return true
		}
		if venue.UpdatedAt.After(row.LastValidatedOn) {
			return true
		}
	}

	codes, err := row.GetErrorCodes()
	if err != nil {
		return true
	}
	hasCode := func(want string) bool {
		for _, c := range codes {
			if c == want {
				return true
			}
		}
		return false
	}

	// A row that failed venue resolution can start passing once the provider
	// adds or renames venues.
	if hasCode(ErrCodeVenueInvalid) || hasCode(ErrCodeVenueAmbiguous) {
		if snap.LatestVenueChange().After(row.LastValidatedOn) {
			return true
		}
	}

	if res.StandardCode != nil && res.StandardVersion != nil {
		std := snap.StandardByKey(*res.StandardCode, *res.StandardVersion)
		if std == nil {
			if snap.LatestStandardChange().After(row.LastValidatedOn) {
				return true
			}
		} else if std.UpdatedAt.After(row.LastValidatedOn) {
			return true
		}
	}

	if res.FrameworkCode != nil && res.FrameworkProgType != nil && res.FrameworkPathwayCode != nil {
		fw := snap.FrameworkByKey(*res.FrameworkCode, *res.FrameworkProgType, *res.FrameworkPathwayCode)
		if fw == nil {
			if snap.LatestFrameworkChange().After(row.LastValidatedOn) {
				return true
			}
		} else if fw.UpdatedAt.After(row.LastValidatedOn) {
			return true
		}
	}

	return false
}

// RevalidationService re-checks a processed upload's rows against current
// reference data without touching rows whose outcome cannot have changed.
type RevalidationService struct {
	uploadRepo repositories.UploadRepository
	snapshots  *refservices.SnapshotProvider
}

func NewRevalidationService(uploadRepo repositories.UploadRepository, snapshots *refservices.SnapshotProvider) *RevalidationService {
	return &RevalidationService{uploadRepo: uploadRepo, snapshots: snapshots}
}

// RevalidateStaleRows takes one snapshot, revalidates every stale row against
// it and refreshes the upload's status. It returns the row numbers it
// selected; running it twice against unchanged reference data selects nothing
// the second time.
func (s *RevalidationService) RevalidateStaleRows(uploadID uuid.UUID) (*models.Upload, []int, error) {
	upload, err := s.uploadRepo.GetUpload(uploadID)
	if err != nil {
		return nil, nil, err
	}
	if !upload.Status.IsProcessed() {
		return nil, nil, repositories.ErrUploadConflict
	}

	snap, err := s.snapshots.Snapshot(upload.ProviderID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.uploadRepo.GetRows(uploadID)
	if err != nil {
		return nil, nil, err
	}

	staleNumbers := SelectStaleRows(rows, snap)
	if len(staleNumbers) == 0 {
		return upload, nil, nil
	}

	byNumber := make(map[int]*models.UploadRow, len(rows))
	for i := range rows {
		byNumber[rows[i].RowNumber] = &rows[i]
	}

	updated := make([]models.UploadRow, 0, len(staleNumbers))
	for _, n := range staleNumbers {
		row := byNumber[n]
		resolved := ValidateRow(RawRow{RowNumber: n, Fields: row.RawFieldMap()}, snap)
		resolved.GroupID = row.GroupID
		if resolved.GroupKey != row.GroupKey {
			row.GroupKey = resolved.GroupKey
			row.GroupID = groupIDFromRows(rows, n, resolved.GroupKey)
		}
		if err := applyResolved(row, &resolved, snap.FetchedAt); err != nil {
			return nil, nil, err
		}
		updated = append(updated, *row)
	}

	if err := s.uploadRepo.UpdateRows(uploadID, updated); err != nil {
		return nil, nil, err
	}

	refreshed, err := s.uploadRepo.RefreshStatusFromRows(uploadID)
	if err != nil {
		return nil, nil, err
	}

	config.Logger.Info("Upload revalidated",
		zap.String("upload_id", uploadID.String()),
		zap.Int("stale_rows", len(staleNumbers)),
		zap.String("status", string(refreshed.Status)),
	)
	return refreshed, staleNumbers, nil
}

// groupIDFromRows mirrors groupIDForKey over an in-memory row set.
func groupIDFromRows(rows []models.UploadRow, rowNumber int, key string) uuid.UUID {
	if key == "" {
		return uuid.New()
	}
	for i := range rows {
		if rows[i].RowNumber != rowNumber && rows[i].GroupKey == key {
			return rows[i].GroupID
		}
	}
	return uuid.New()
}
