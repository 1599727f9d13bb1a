package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-directory-backend/db/models"
	refservices "course-directory-backend/reference/services"
)

var (
	testProviderID = uuid.MustParse("6f1c1a9e-0a47-4f2f-b0d3-91a6c1f2a001")
	mainCampusID   = uuid.MustParse("6f1c1a9e-0a47-4f2f-b0d3-91a6c1f2a002")
	fetchedAt      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func testSnapshot() *refservices.Snapshot {
	expired := fetchedAt.Add(-24 * time.Hour)

	venues := []models.Venue{
		{ID: mainCampusID, ProviderID: testProviderID, Name: "Main Campus", ProviderVenueRef: strPtr("MC-01"), Status: models.VenueStatusLive},
		{ID: uuid.New(), ProviderID: testProviderID, Name: "Annex", Status: models.VenueStatusLive},
		{ID: uuid.New(), ProviderID: testProviderID, Name: "Annex", Status: models.VenueStatusLive},
	}

	northWest := "E12000002"
	regions := []models.Region{
		{ID: northWest, Name: "North West"},
		{ID: "E10000017", Name: "Lancashire", ParentID: &northWest},
		{ID: "E08000003", Name: "Manchester", ParentID: &northWest},
	}

	standards := []models.Standard{
		{StandardCode: 101, Version: 1, Title: "Software Developer"},
		{StandardCode: 102, Version: 1, Title: "Retired Standard", EffectiveTo: &expired},
	}

	frameworks := []models.Framework{
		{FrameworkCode: 403, ProgType: 2, PathwayCode: 1, Title: "Engineering Framework"},
	}

	return refservices.NewSnapshot(testProviderID, fetchedAt, venues, regions, standards, frameworks)
}

// validRow returns raw fields that pass every rule for an employer row.
func validRow() map[string]string {
	return map[string]string{
		ColStandardCode:     "101",
		ColStandardVersion:  "1",
		ColInformation:      "A thorough apprenticeship in software development.",
		ColContactEmail:     "admissions@provider.ac.uk",
		ColContactPhone:     "01234 567890",
		ColDuration:         "18",
		ColDeliveryMethod:   "employer",
		ColNationalDelivery: "yes",
	}
}

func validateFields(t *testing.T, fields map[string]string) ResolvedRow {
	t.Helper()
	return ValidateRow(RawRow{RowNumber: 2, Fields: fields}, testSnapshot())
}

func TestValidateRowQualification(t *testing.T) {
	t.Run("valid standard resolves title and group key", func(t *testing.T) {
		row := validateFields(t, validRow())
		assert.Empty(t, row.ErrorCodes)
		assert.Equal(t, "Software Developer", row.Resolution.QualificationTitle)
		assert.Equal(t, "standard:101:1", row.GroupKey)
	})

	t.Run("valid framework resolves title and group key", func(t *testing.T) {
		fields := validRow()
		delete(fields, ColStandardCode)
		delete(fields, ColStandardVersion)
		fields[ColFrameworkCode] = "403"
		fields[ColFrameworkProgType] = "2"
		fields[ColFrameworkPathwayCode] = "1"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		assert.Equal(t, "Engineering Framework", row.Resolution.QualificationTitle)
		assert.Equal(t, "framework:403:2:1", row.GroupKey)
	})

	t.Run("missing qualification entirely", func(t *testing.T) {
		fields := validRow()
		delete(fields, ColStandardCode)
		delete(fields, ColStandardVersion)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeQualificationRequired)
		assert.Empty(t, row.GroupKey)
	})

	t.Run("standard and framework on the same row", func(t *testing.T) {
		fields := validRow()
		fields[ColFrameworkCode] = "403"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardAndFramework)
	})

	t.Run("incomplete standard identity", func(t *testing.T) {
		fields := validRow()
		delete(fields, ColStandardVersion)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardIncomplete)
	})

	t.Run("non numeric standard code", func(t *testing.T) {
		fields := validRow()
		fields[ColStandardCode] = "abc"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardCodeFormat)
	})

	t.Run("unknown standard", func(t *testing.T) {
		fields := validRow()
		fields[ColStandardCode] = "999"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardNotFound)
		assert.Empty(t, row.GroupKey)
	})

	t.Run("expired standard judged against snapshot time", func(t *testing.T) {
		fields := validRow()
		fields[ColStandardCode] = "102"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardExpired)
	})
}

func TestValidateRowDetails(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(map[string]string)
		wantCode string
	}{
		{"information required", func(f map[string]string) { delete(f, ColInformation) }, ErrCodeInformationRequired},
		{"information too long", func(f map[string]string) { f[ColInformation] = strings.Repeat("a", 751) }, ErrCodeInformationMaxLength},
		{"webpage too long", func(f map[string]string) { f[ColWebpage] = "https://" + strings.Repeat("a", 250) + ".com" }, ErrCodeWebpageMaxLength},
		{"webpage bad format", func(f map[string]string) { f[ColWebpage] = "not a url" }, ErrCodeWebpageFormat},
		{"email required", func(f map[string]string) { delete(f, ColContactEmail) }, ErrCodeContactEmailRequired},
		{"email bad format", func(f map[string]string) { f[ColContactEmail] = "not-an-email" }, ErrCodeContactEmailFormat},
		{"phone required", func(f map[string]string) { delete(f, ColContactPhone) }, ErrCodeContactPhoneRequired},
		{"phone too long", func(f map[string]string) { f[ColContactPhone] = strings.Repeat("1", 31) }, ErrCodeContactPhoneMaxLength},
		{"phone bad format", func(f map[string]string) { f[ColContactPhone] = "phone me" }, ErrCodeContactPhoneFormat},
		{"contact url bad format", func(f map[string]string) { f[ColContactURL] = "::nope::" }, ErrCodeContactURLFormat},
		{"cost bad format", func(f map[string]string) { f[ColCost] = "12.345" }, ErrCodeCostFormat},
		{"duration required", func(f map[string]string) { delete(f, ColDuration) }, ErrCodeDurationRequired},
		{"duration not a number", func(f map[string]string) { f[ColDuration] = "eighteen" }, ErrCodeDurationFormat},
		{"duration out of range", func(f map[string]string) { f[ColDuration] = "121" }, ErrCodeDurationRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := validRow()
			tc.mutate(fields)
			row := validateFields(t, fields)
			assert.Contains(t, row.ErrorCodes, tc.wantCode)
		})
	}

	t.Run("valid cost is resolved as a decimal", func(t *testing.T) {
		fields := validRow()
		fields[ColCost] = "1500.50"
		row := validateFields(t, fields)
		require.NotNil(t, row.Resolution.Cost)
		assert.Equal(t, "1500.5", row.Resolution.Cost.String())
	})

	t.Run("errors accumulate across rule groups", func(t *testing.T) {
		fields := validRow()
		fields[ColStandardCode] = "999"
		delete(fields, ColInformation)
		delete(fields, ColContactPhone)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeStandardNotFound)
		assert.Contains(t, row.ErrorCodes, ErrCodeInformationRequired)
		assert.Contains(t, row.ErrorCodes, ErrCodeContactPhoneRequired)
	})
}

func TestValidateRowDelivery(t *testing.T) {
	classroomRow := func() map[string]string {
		fields := validRow()
		fields[ColDeliveryMethod] = "classroom"
		delete(fields, ColNationalDelivery)
		fields[ColDeliveryMode] = "day;block"
		fields[ColVenue] = "Main Campus"
		return fields
	}

	t.Run("delivery method required", func(t *testing.T) {
		fields := validRow()
		delete(fields, ColDeliveryMethod)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeDeliveryMethodRequired)
	})

	t.Run("delivery method invalid", func(t *testing.T) {
		fields := validRow()
		fields[ColDeliveryMethod] = "remote"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeDeliveryMethodInvalid)
	})

	t.Run("classroom row with venue and modes passes", func(t *testing.T) {
		row := validateFields(t, classroomRow())
		assert.Empty(t, row.ErrorCodes)
		require.NotNil(t, row.Resolution.VenueID)
		assert.Equal(t, mainCampusID, *row.Resolution.VenueID)
		assert.Equal(t, []models.DeliveryMode{models.DeliveryModeDay, models.DeliveryModeBlock}, row.Resolution.DeliveryModes)
	})

	t.Run("classroom delivery ignores the radius column", func(t *testing.T) {
		fields := classroomRow()
		fields[ColRadius] = "not a number"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		assert.Nil(t, row.Resolution.Radius)
	})

	t.Run("classroom row requires delivery mode", func(t *testing.T) {
		fields := classroomRow()
		delete(fields, ColDeliveryMode)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeDeliveryModeRequired)
	})

	t.Run("duplicate delivery modes rejected", func(t *testing.T) {
		fields := classroomRow()
		fields[ColDeliveryMode] = "day;day"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeDeliveryModeDuplicate)
	})

	t.Run("unknown delivery mode rejected", func(t *testing.T) {
		fields := classroomRow()
		fields[ColDeliveryMode] = "day;remote"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeDeliveryModeInvalid)
	})

	t.Run("venue reference match wins and is case insensitive", func(t *testing.T) {
		fields := classroomRow()
		delete(fields, ColVenue)
		fields[ColVenueReference] = "mc-01"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		require.NotNil(t, row.Resolution.VenueID)
		assert.Equal(t, mainCampusID, *row.Resolution.VenueID)
	})

	t.Run("supplied reference never falls back to name", func(t *testing.T) {
		fields := classroomRow()
		fields[ColVenue] = "Main Campus"
		fields[ColVenueReference] = "NO-SUCH-REF"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeVenueInvalid)
		assert.Nil(t, row.Resolution.VenueID)
	})

	t.Run("ambiguous venue name rejected", func(t *testing.T) {
		fields := classroomRow()
		fields[ColVenue] = "Annex"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeVenueAmbiguous)
	})

	t.Run("venue required for classroom delivery", func(t *testing.T) {
		fields := classroomRow()
		delete(fields, ColVenue)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeVenueRequired)
	})

	t.Run("both with across england yes forces national radius", func(t *testing.T) {
		fields := classroomRow()
		fields[ColDeliveryMethod] = "both"
		fields[ColAcrossEngland] = "yes"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		require.NotNil(t, row.Resolution.Radius)
		assert.Equal(t, 600, *row.Resolution.Radius)
	})

	t.Run("both with across england no requires radius", func(t *testing.T) {
		fields := classroomRow()
		fields[ColDeliveryMethod] = "both"
		fields[ColAcrossEngland] = "no"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeRadiusRequired)
	})

	t.Run("radius out of range", func(t *testing.T) {
		fields := classroomRow()
		fields[ColDeliveryMethod] = "both"
		fields[ColAcrossEngland] = "no"
		fields[ColRadius] = "875"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeRadiusRange)
	})

	t.Run("employer delivery requires national answer", func(t *testing.T) {
		fields := validRow()
		delete(fields, ColNationalDelivery)
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeNationalDeliveryRequired)
	})

	t.Run("non national employer delivery requires regions", func(t *testing.T) {
		fields := validRow()
		fields[ColNationalDelivery] = "no"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeRegionsRequired)
	})

	t.Run("region expands to its sub region codes", func(t *testing.T) {
		fields := validRow()
		fields[ColNationalDelivery] = "no"
		fields[ColRegion] = "North West"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		assert.ElementsMatch(t, []string{"E10000017", "E08000003"}, row.Resolution.SubRegionCodes)
	})

	t.Run("sub regions resolve and merge without duplicates", func(t *testing.T) {
		fields := validRow()
		fields[ColNationalDelivery] = "no"
		fields[ColRegion] = "North West"
		fields[ColSubRegion] = "Manchester"
		row := validateFields(t, fields)
		assert.Empty(t, row.ErrorCodes)
		assert.ElementsMatch(t, []string{"E10000017", "E08000003"}, row.Resolution.SubRegionCodes)
	})

	t.Run("one bad region token invalidates the whole list", func(t *testing.T) {
		fields := validRow()
		fields[ColNationalDelivery] = "no"
		fields[ColRegion] = "North West;Atlantis"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeRegionInvalid)
		assert.Empty(t, row.Resolution.SubRegionCodes)
	})

	t.Run("one bad sub region token invalidates the whole list", func(t *testing.T) {
		fields := validRow()
		fields[ColNationalDelivery] = "no"
		fields[ColSubRegion] = "Manchester;Gotham"
		row := validateFields(t, fields)
		assert.Contains(t, row.ErrorCodes, ErrCodeSubRegionInvalid)
	})
}

func TestValidateRowDeterminism(t *testing.T) {
	fields := validRow()
	fields[ColStandardCode] = "999"
	delete(fields, ColContactEmail)
	fields[ColDeliveryMethod] = "classroom"

	first := validateFields(t, fields)
	for i := 0; i < 10; i++ {
		again := validateFields(t, fields)
		assert.Equal(t, first.ErrorCodes, again.ErrorCodes)
		assert.Equal(t, first.GroupKey, again.GroupKey)
	}
}
