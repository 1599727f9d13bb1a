package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ApprenticeshipStatus marks a live catalog record as visible or archived.
type ApprenticeshipStatus string

const (
	ApprenticeshipStatusLive     ApprenticeshipStatus = "live"
	ApprenticeshipStatusArchived ApprenticeshipStatus = "archived"
)

// ApprenticeshipLocation is one delivery location of a live apprenticeship,
// produced from one upload row of its group.
type ApprenticeshipLocation struct {
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	DeliveryModes  []DeliveryMode `json:"delivery_modes,omitempty"`
	VenueID        *uuid.UUID     `json:"venue_id,omitempty"`
	Radius         *int           `json:"radius,omitempty"`
	National       *bool          `json:"national,omitempty"`
	SubRegionCodes []string       `json:"sub_region_codes,omitempty"`
}

// Apprenticeship is a record in the authoritative live catalog. Its ID is the
// GroupID assigned when the record was first published, which is the stable
// identity the publisher merges on.
type Apprenticeship struct {
	ID         uuid.UUID            `gorm:"type:uuid;primary_key;" json:"id"`
	ProviderID uuid.UUID            `gorm:"type:uuid;not null;index" json:"provider_id"`
	Status     ApprenticeshipStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Title string `gorm:"not null" json:"title"`

	// Qualification identity: a standard (code+version) or a framework
	// (code+prog type+pathway code), never both.
	StandardCode         *int `gorm:"index" json:"standard_code"`
	StandardVersion      *int `json:"standard_version"`
	FrameworkCode        *int `gorm:"index" json:"framework_code"`
	FrameworkProgType    *int `json:"framework_prog_type"`
	FrameworkPathwayCode *int `json:"framework_pathway_code"`

	MarketingInfo string `gorm:"type:text" json:"marketing_info"`
	Webpage       string `json:"webpage"`
	ContactEmail  string `gorm:"not null" json:"contact_email"`
	ContactPhone  string `gorm:"not null" json:"contact_phone"`
	ContactURL    string `json:"contact_url"`

	Cost           *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cost"`
	DurationMonths int              `gorm:"default:0" json:"duration_months"`

	Locations datatypes.JSON `gorm:"type:jsonb" json:"locations"`

	// Audit fields
	CreatedBy string    `gorm:"not null" json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetLocations marshals the delivery locations into the JSONB column.
func (a *Apprenticeship) SetLocations(locations []ApprenticeshipLocation) error {
	data, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	a.Locations = datatypes.JSON(data)
	return nil
}

// GetLocations unmarshals the delivery locations.
func (a *Apprenticeship) GetLocations() ([]ApprenticeshipLocation, error) {
	var locations []ApprenticeshipLocation
	if len(a.Locations) == 0 {
		return locations, nil
	}
	err := json.Unmarshal(a.Locations, &locations)
	return locations, err
}
