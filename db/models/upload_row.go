package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeliveryMethod is the discriminator field driving the cross-field
// validation rules of a row.
type DeliveryMethod string

const (
	DeliveryMethodClassroom DeliveryMethod = "classroom"
	DeliveryMethodEmployer  DeliveryMethod = "employer"
	DeliveryMethodBoth      DeliveryMethod = "both"
)

// NeedsVenue reports whether this delivery method requires a resolvable venue.
func (m DeliveryMethod) NeedsVenue() bool {
	return m == DeliveryMethodClassroom || m == DeliveryMethodBoth
}

// DeliveryMode is one of the classroom attendance patterns.
type DeliveryMode string

const (
	DeliveryModeDay      DeliveryMode = "day"
	DeliveryModeBlock    DeliveryMode = "block"
	DeliveryModeEmployer DeliveryMode = "employer"
)

// RowResolution carries every value successfully resolved from a row's raw
// fields, kept even when other fields on the same row are invalid so the UI
// can show partial progress. Serialized into the row's resolution JSONB
// column.
type RowResolution struct {
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`
	DeliveryModes  []DeliveryMode `json:"delivery_modes,omitempty"`

	VenueID        *uuid.UUID `json:"venue_id,omitempty"`
	Radius         *int       `json:"radius,omitempty"`
	AcrossEngland  *bool      `json:"across_england,omitempty"`
	National       *bool      `json:"national,omitempty"`
	SubRegionCodes []string   `json:"sub_region_codes,omitempty"`

	StandardCode         *int   `json:"standard_code,omitempty"`
	StandardVersion      *int   `json:"standard_version,omitempty"`
	FrameworkCode        *int   `json:"framework_code,omitempty"`
	FrameworkProgType    *int   `json:"framework_prog_type,omitempty"`
	FrameworkPathwayCode *int   `json:"framework_pathway_code,omitempty"`
	QualificationTitle   string `json:"qualification_title,omitempty"`

	Cost           *decimal.Decimal `json:"cost,omitempty"`
	DurationMonths *int             `json:"duration_months,omitempty"`
}

// UploadRow is one data line of an upload, independently validated. Identity
// is (UploadID, RowNumber); RowNumber is the 1-based position in the source
// file (data starts at 2) and is stable for the life of the upload.
type UploadRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	UploadID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_upload_rows_upload_row_number" json:"upload_id"`
	RowNumber  int       `gorm:"not null;uniqueIndex:idx_upload_rows_upload_row_number" json:"row_number"`

	// GroupID ties rows representing one logical apprenticeship together.
	// GroupKey is the normalized qualification identity the grouping is based
	// on; blank-key rows always stand alone.
	GroupID  uuid.UUID `gorm:"type:uuid;not null;index" json:"group_id"`
	GroupKey string    `gorm:"index" json:"group_key"`

	RawFields  datatypes.JSONMap `gorm:"type:jsonb" json:"raw_fields"`
	Resolution datatypes.JSON    `gorm:"type:jsonb" json:"resolution"`
	ErrorCodes datatypes.JSON    `gorm:"type:jsonb" json:"error_codes"`

	// VenueID duplicates the resolved venue from Resolution so the
	// revalidation selector can query by it.
	VenueID *uuid.UUID `gorm:"type:uuid;index" json:"venue_id"`

	IsValid         bool      `gorm:"not null;index" json:"is_valid"`
	LastValidatedOn time.Time `gorm:"not null" json:"last_validated_on"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *UploadRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SetResolution marshals the resolution into the JSONB column and mirrors the
// venue id into its queryable column.
func (r *UploadRow) SetResolution(res RowResolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	r.Resolution = datatypes.JSON(data)
	r.VenueID = res.VenueID
	return nil
}

// GetResolution unmarshals the resolution JSONB column.
func (r *UploadRow) GetResolution() (RowResolution, error) {
	var res RowResolution
	if len(r.Resolution) == 0 {
		return res, nil
	}
	err := json.Unmarshal(r.Resolution, &res)
	return res, err
}

// SetErrorCodes stores the ordered error code list; an empty list marks the
// row valid.
func (r *UploadRow) SetErrorCodes(codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	r.ErrorCodes = datatypes.JSON(data)
	r.IsValid = len(codes) == 0
	return nil
}

// GetErrorCodes returns the stored error code list.
func (r *UploadRow) GetErrorCodes() ([]string, error) {
	var codes []string
	if len(r.ErrorCodes) == 0 {
		return codes, nil
	}
	err := json.Unmarshal(r.ErrorCodes, &codes)
	return codes, err
}

// RawField returns a raw column value by its canonical header name.
func (r *UploadRow) RawField(name string) string {
	if r.RawFields == nil {
		return ""
	}
	if v, ok := r.RawFields[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RawFieldMap converts the JSONB raw fields back into a plain string map.
func (r *UploadRow) RawFieldMap() map[string]string {
	out := make(map[string]string, len(r.RawFields))
	for k, v := range r.RawFields {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
