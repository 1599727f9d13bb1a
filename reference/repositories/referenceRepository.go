package repositories

import (
	"database/sql"
	"strings"
	"time"

	"course-directory-backend/db/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferenceRepository interface {
	GetLiveVenuesByProvider(providerID uuid.UUID) ([]models.Venue, error)
	GetLatestVenueChange(providerID uuid.UUID) (time.Time, error)
	GetRegions() ([]models.Region, error)
	GetStandards() ([]models.Standard, error)
	GetFrameworks() ([]models.Framework, error)
	GetFilteredVenues(providerID uuid.UUID, pageSize int, offset int, filters map[string]string) ([]models.Venue, int64, error)
}

type referenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{
		db: db,
	}
}

// GetLiveVenuesByProvider returns the venues validation may resolve against.
// Archived venues are excluded; the validator never sees them.
func (r *referenceRepository) GetLiveVenuesByProvider(providerID uuid.UUID) ([]models.Venue, error) {
	var venues []models.Venue
	err := r.db.
		Where("provider_id = ? AND status = ?", providerID, models.VenueStatusLive).
		Order("name").
		Find(&venues).Error
	return venues, err
}

// GetLatestVenueChange returns the newest UpdatedAt across all of a
// provider's venues regardless of status. Archiving a venue counts as a
// change even though the venue leaves the live set.
func (r *referenceRepository) GetLatestVenueChange(providerID uuid.UUID) (time.Time, error) {
	var latest sql.NullTime
	err := r.db.Model(&models.Venue{}).
		Where("provider_id = ?", providerID).
		Select("MAX(updated_at)").
		Scan(&latest).Error
	if err != nil || !latest.Valid {
		return time.Time{}, err
	}
	return latest.Time, nil
}

func (r *referenceRepository) GetRegions() ([]models.Region, error) {
	var regions []models.Region
	err := r.db.Order("id").Find(&regions).Error
	return regions, err
}

func (r *referenceRepository) GetStandards() ([]models.Standard, error) {
	var standards []models.Standard
	err := r.db.Order("standard_code, version").Find(&standards).Error
	return standards, err
}

func (r *referenceRepository) GetFrameworks() ([]models.Framework, error) {
	var frameworks []models.Framework
	err := r.db.Order("framework_code, prog_type, pathway_code").Find(&frameworks).Error
	return frameworks, err
}

// GetFilteredVenues retrieves a provider's venues with filtering and pagination
func (r *referenceRepository) GetFilteredVenues(providerID uuid.UUID, pageSize int, offset int, filters map[string]string) ([]models.Venue, int64, error) {
	var venues []models.Venue
	var total int64

	db := r.db.Model(&models.Venue{}).Where("provider_id = ?", providerID)

	// Apply filters
	for key, value := range filters {
		switch key {
		case "status":
			switch strings.ToLower(value) {
			case string(models.VenueStatusLive):
				db = db.Where("status = ?", models.VenueStatusLive)
			case string(models.VenueStatusArchived):
				db = db.Where("status = ?", models.VenueStatusArchived)
			}
		case "name":
			db = db.Where("name ILIKE ?", "%"+value+"%")
		case "ref":
			db = db.Where("provider_venue_ref ILIKE ?", value)
		}
	}

	// Count total records with filters applied
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	if err := db.Limit(pageSize).Offset(offset).Order("name").Find(&venues).Error; err != nil {
		return nil, 0, err
	}

	return venues, total, nil
}
