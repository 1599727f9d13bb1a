package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VenueStatus marks a venue as visible to validation or archived.
type VenueStatus string

const (
	VenueStatusLive     VenueStatus = "live"
	VenueStatusArchived VenueStatus = "archived"
)

// Venue is a provider training location. Only live venues take part in
// row validation; UpdatedAt drives the revalidation selector.
type Venue struct {
	ID         uuid.UUID   `gorm:"type:uuid;primary_key;" json:"id"`
	ProviderID uuid.UUID   `gorm:"type:uuid;not null;index" json:"provider_id"`
	Name       string      `gorm:"not null;index" json:"name"`

	// Provider's own reference code for the venue, matched before the name.
	ProviderVenueRef *string `gorm:"index" json:"provider_venue_ref"`

	Status VenueStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CreatedBy string    `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Venue) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Region is a node in the two-level region hierarchy. Top-level regions have
// a nil ParentID; sub-regions point at their region. The ID is the official
// area code (e.g. E12000001).
type Region struct {
	ID       string  `gorm:"primary_key" json:"id"`
	Name     string  `gorm:"not null;index" json:"name"`
	ParentID *string `gorm:"index" json:"parent_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Standard is an apprenticeship standard from the qualification catalog,
// identified by (code, version).
type Standard struct {
	StandardCode    int    `gorm:"primary_key;autoIncrement:false" json:"standard_code"`
	Version         int    `gorm:"primary_key;autoIncrement:false" json:"version"`
	Title           string `gorm:"not null" json:"title"`

	EffectiveTo *time.Time `json:"effective_to"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Framework is a legacy apprenticeship framework, identified by
// (code, prog type, pathway code).
type Framework struct {
	FrameworkCode int    `gorm:"primary_key;autoIncrement:false" json:"framework_code"`
	ProgType      int    `gorm:"primary_key;autoIncrement:false" json:"prog_type"`
	PathwayCode   int    `gorm:"primary_key;autoIncrement:false" json:"pathway_code"`
	Title         string `gorm:"not null" json:"title"`

	EffectiveTo *time.Time `json:"effective_to"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
