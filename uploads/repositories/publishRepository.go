package repositories

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-directory-backend/db/models"
)

// ErrUploadNotReady means publish was requested while the upload still has
// invalid rows or has not finished processing.
var ErrUploadNotReady = errors.New("upload is not ready to publish")

// PublishResult reports what a publish pass did.
type PublishResult struct {
	Upload         *models.Upload
	PublishedCount int
	UpsertedIDs    []uuid.UUID
	ArchivedIDs    []uuid.UUID
}

type PublishRepository interface {
	// PublishUpload atomically merges the upload's rows into the provider's
	// live catalog: one record per group is upserted, and every live record
	// the upload no longer represents is archived. The whole merge and the
	// published status flip commit together or not at all.
	PublishUpload(uploadID uuid.UUID, publishedBy string) (*PublishResult, error)

	GetLiveApprenticeships(providerID uuid.UUID) ([]models.Apprenticeship, error)
	// GetAllLiveApprenticeships returns the whole live catalog, used to
	// rebuild the search index at startup.
	GetAllLiveApprenticeships() ([]models.Apprenticeship, error)
	GetApprenticeship(id uuid.UUID) (*models.Apprenticeship, error)
}

type publishRepository struct {
	db *gorm.DB
}

func NewPublishRepository(db *gorm.DB) PublishRepository {
	return &publishRepository{db: db}
}

func (r *publishRepository) PublishUpload(uploadID uuid.UUID, publishedBy string) (*PublishResult, error) {
	result := &PublishResult{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var upload models.Upload
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&upload, "id = ?", uploadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUploadNotFound
			}
			return err
		}
		if upload.Status.IsTerminal() {
			return ErrUploadConflict
		}
		if !upload.Status.IsProcessed() {
			return ErrUploadNotReady
		}

		var rows []models.UploadRow
		if err := tx.Where("upload_id = ?", uploadID).
			Order("row_number ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			if !rows[i].IsValid {
				return ErrUploadNotReady
			}
		}
		if len(rows) == 0 {
			return ErrUploadNotReady
		}

		records, err := BuildLiveRecords(&upload, rows, publishedBy)
		if err != nil {
			return err
		}

		groupIDs := make(map[uuid.UUID]bool, len(records))
		for i := range records {
			groupIDs[records[i].ID] = true
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&records[i]).Error; err != nil {
				return err
			}
			result.UpsertedIDs = append(result.UpsertedIDs, records[i].ID)
		}

		// Archive whatever the provider had live that this upload no longer
		// describes.
		var live []models.Apprenticeship
		if err := tx.Where("provider_id = ? AND status = ?", upload.ProviderID, models.ApprenticeshipStatusLive).
			Find(&live).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		toArchive := ArchivedAfterPublish(live, groupIDs)
		for i := range live {
			if !toArchive[live[i].ID] {
				continue
			}
			live[i].Status = models.ApprenticeshipStatusArchived
			live[i].UpdatedBy = publishedBy
			if err := tx.Save(&live[i]).Error; err != nil {
				return err
			}
			result.ArchivedIDs = append(result.ArchivedIDs, live[i].ID)
		}

		upload.Status = models.UploadStatusPublished
		upload.PublishedOn = &now
		if err := tx.Save(&upload).Error; err != nil {
			return err
		}

		result.Upload = &upload
		result.PublishedCount = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ArchivedAfterPublish picks the live records a publish leaves behind: every
// record whose id no published group re-described gets archived, nothing else.
func ArchivedAfterPublish(live []models.Apprenticeship, published map[uuid.UUID]bool) map[uuid.UUID]bool {
	archived := make(map[uuid.UUID]bool)
	for i := range live {
		if !published[live[i].ID] {
			archived[live[i].ID] = true
		}
	}
	return archived
}

// BuildLiveRecords maps an upload's validated rows into live catalog records,
// one per group. The group id becomes the record id, so a republish of the
// same qualification updates in place.
func BuildLiveRecords(upload *models.Upload, rows []models.UploadRow, publishedBy string) ([]models.Apprenticeship, error) {
	type group struct {
		first     *models.UploadRow
		firstRes  models.RowResolution
		locations []models.ApprenticeshipLocation
	}

	groups := make(map[uuid.UUID]*group)
	var order []uuid.UUID
	for i := range rows {
		row := &rows[i]
		res, err := row.GetResolution()
		if err != nil {
			return nil, err
		}
		g, ok := groups[row.GroupID]
		if !ok {
			g = &group{first: row, firstRes: res}
			groups[row.GroupID] = g
			order = append(order, row.GroupID)
		}
		g.locations = append(g.locations, models.ApprenticeshipLocation{
			DeliveryMethod: res.DeliveryMethod,
			DeliveryModes:  res.DeliveryModes,
			VenueID:        res.VenueID,
			Radius:         res.Radius,
			National:       nationalReach(res),
			SubRegionCodes: res.SubRegionCodes,
		})
	}

	sort.Slice(order, func(i, j int) bool {
		return groups[order[i]].first.RowNumber < groups[order[j]].first.RowNumber
	})

	records := make([]models.Apprenticeship, 0, len(order))
	for _, id := range order {
		g := groups[id]
		res := g.firstRes
		record := models.Apprenticeship{
			ID:         id,
			ProviderID: upload.ProviderID,
			Status:     models.ApprenticeshipStatusLive,

			Title:                res.QualificationTitle,
			StandardCode:         res.StandardCode,
			StandardVersion:      res.StandardVersion,
			FrameworkCode:        res.FrameworkCode,
			FrameworkProgType:    res.FrameworkProgType,
			FrameworkPathwayCode: res.FrameworkPathwayCode,

			MarketingInfo: g.first.RawField("APPRENTICESHIP_INFORMATION"),
			Webpage:       g.first.RawField("APPRENTICESHIP_WEBPAGE"),
			ContactEmail:  g.first.RawField("CONTACT_EMAIL"),
			ContactPhone:  g.first.RawField("CONTACT_PHONE"),
			ContactURL:    g.first.RawField("CONTACT_URL"),

			Cost:      res.Cost,
			CreatedBy: publishedBy,
			UpdatedBy: publishedBy,
		}
		if res.DurationMonths != nil {
			record.DurationMonths = *res.DurationMonths
		}
		if err := record.SetLocations(g.locations); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// nationalReach collapses the two reach flags into the one stored on a
// location. Across-England classroom reach counts as national.
func nationalReach(res models.RowResolution) *bool {
	if res.National != nil {
		return res.National
	}
	return res.AcrossEngland
}

func (r *publishRepository) GetLiveApprenticeships(providerID uuid.UUID) ([]models.Apprenticeship, error) {
	var records []models.Apprenticeship
	err := r.db.Where("provider_id = ? AND status = ?", providerID, models.ApprenticeshipStatusLive).
		Order("title ASC").
		Find(&records).Error
	return records, err
}

func (r *publishRepository) GetAllLiveApprenticeships() ([]models.Apprenticeship, error) {
	var records []models.Apprenticeship
	err := r.db.Where("status = ?", models.ApprenticeshipStatusLive).
		Find(&records).Error
	return records, err
}

func (r *publishRepository) GetApprenticeship(id uuid.UUID) (*models.Apprenticeship, error) {
	var record models.Apprenticeship
	if err := r.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
