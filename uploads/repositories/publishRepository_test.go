package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-directory-backend/db/models"
)

func buildRow(t *testing.T, uploadID, groupID uuid.UUID, rowNumber int, res models.RowResolution, fields map[string]string) models.UploadRow {
	t.Helper()
	raw := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	row := models.UploadRow{
		UploadID:  uploadID,
		RowNumber: rowNumber,
		GroupID:   groupID,
		RawFields: raw,
	}
	require.NoError(t, row.SetResolution(res))
	require.NoError(t, row.SetErrorCodes(nil))
	return row
}

func TestBuildLiveRecords(t *testing.T) {
	providerID := uuid.New()
	upload := &models.Upload{ID: uuid.New(), ProviderID: providerID}

	code := 101
	version := 1
	duration := 18
	cost := decimal.RequireFromString("1500.00")
	venueID := uuid.New()
	national := true

	groupA := uuid.New()
	groupB := uuid.New()

	details := map[string]string{
		"APPRENTICESHIP_INFORMATION": "Learn software development.",
		"CONTACT_EMAIL":              "admissions@provider.ac.uk",
		"CONTACT_PHONE":              "01234 567890",
	}

	rows := []models.UploadRow{
		buildRow(t, upload.ID, groupA, 2, models.RowResolution{
			StandardCode:       &code,
			StandardVersion:    &version,
			QualificationTitle: "Software Developer",
			DeliveryMethod:     models.DeliveryMethodClassroom,
			DeliveryModes:      []models.DeliveryMode{models.DeliveryModeDay},
			VenueID:            &venueID,
			Cost:               &cost,
			DurationMonths:     &duration,
		}, details),
		buildRow(t, upload.ID, groupB, 3, models.RowResolution{
			FrameworkCode:        &code,
			FrameworkProgType:    &version,
			FrameworkPathwayCode: &version,
			QualificationTitle:   "Engineering Framework",
			DeliveryMethod:       models.DeliveryMethodEmployer,
			National:             &national,
			DurationMonths:       &duration,
		}, details),
		buildRow(t, upload.ID, groupA, 4, models.RowResolution{
			StandardCode:       &code,
			StandardVersion:    &version,
			QualificationTitle: "Software Developer",
			DeliveryMethod:     models.DeliveryMethodEmployer,
			National:           &national,
			DurationMonths:     &duration,
		}, details),
	}

	records, err := BuildLiveRecords(upload, rows, "publisher@provider.ac.uk")
	require.NoError(t, err)
	require.Len(t, records, 2)

	t.Run("one record per group keyed by group id", func(t *testing.T) {
		assert.Equal(t, groupA, records[0].ID)
		assert.Equal(t, groupB, records[1].ID)
		assert.Equal(t, providerID, records[0].ProviderID)
		assert.Equal(t, models.ApprenticeshipStatusLive, records[0].Status)
	})

	t.Run("group rows become locations in row order", func(t *testing.T) {
		locations, err := records[0].GetLocations()
		require.NoError(t, err)
		require.Len(t, locations, 2)
		assert.Equal(t, models.DeliveryMethodClassroom, locations[0].DeliveryMethod)
		require.NotNil(t, locations[0].VenueID)
		assert.Equal(t, venueID, *locations[0].VenueID)
		assert.Equal(t, models.DeliveryMethodEmployer, locations[1].DeliveryMethod)
		require.NotNil(t, locations[1].National)
		assert.True(t, *locations[1].National)
	})

	t.Run("record details come from the group's first row", func(t *testing.T) {
		assert.Equal(t, "Software Developer", records[0].Title)
		require.NotNil(t, records[0].StandardCode)
		assert.Equal(t, 101, *records[0].StandardCode)
		assert.Equal(t, "Learn software development.", records[0].MarketingInfo)
		assert.Equal(t, "admissions@provider.ac.uk", records[0].ContactEmail)
		require.NotNil(t, records[0].Cost)
		assert.True(t, cost.Equal(*records[0].Cost))
		assert.Equal(t, 18, records[0].DurationMonths)
		assert.Equal(t, "publisher@provider.ac.uk", records[0].CreatedBy)
	})

	t.Run("framework record carries framework identity", func(t *testing.T) {
		assert.Equal(t, "Engineering Framework", records[1].Title)
		assert.Nil(t, records[1].StandardCode)
		require.NotNil(t, records[1].FrameworkCode)
		assert.Equal(t, 101, *records[1].FrameworkCode)
	})
}

func TestBuildLiveRecordsAcrossEnglandCountsAsNational(t *testing.T) {
	upload := &models.Upload{ID: uuid.New(), ProviderID: uuid.New()}
	across := true
	radius := 600

	rows := []models.UploadRow{
		buildRow(t, upload.ID, uuid.New(), 2, models.RowResolution{
			QualificationTitle: "Software Developer",
			DeliveryMethod:     models.DeliveryMethodBoth,
			AcrossEngland:      &across,
			Radius:             &radius,
		}, nil),
	}

	records, err := BuildLiveRecords(upload, rows, "publisher@provider.ac.uk")
	require.NoError(t, err)
	require.Len(t, records, 1)

	locations, err := records[0].GetLocations()
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.NotNil(t, locations[0].National)
	assert.True(t, *locations[0].National)
	require.NotNil(t, locations[0].Radius)
	assert.Equal(t, 600, *locations[0].Radius)
}

func TestArchivedAfterPublish(t *testing.T) {
	keptID := uuid.New()
	staleID := uuid.New()
	otherStaleID := uuid.New()

	live := []models.Apprenticeship{
		{ID: keptID, Status: models.ApprenticeshipStatusLive},
		{ID: staleID, Status: models.ApprenticeshipStatusLive},
		{ID: otherStaleID, Status: models.ApprenticeshipStatusLive},
	}

	t.Run("records the upload no longer describes are archived", func(t *testing.T) {
		archived := ArchivedAfterPublish(live, map[uuid.UUID]bool{keptID: true})
		assert.Equal(t, map[uuid.UUID]bool{staleID: true, otherStaleID: true}, archived)
	})

	t.Run("a republish of everything archives nothing", func(t *testing.T) {
		archived := ArchivedAfterPublish(live, map[uuid.UUID]bool{
			keptID: true, staleID: true, otherStaleID: true,
		})
		assert.Empty(t, archived)
	})

	t.Run("no live records means nothing to archive", func(t *testing.T) {
		archived := ArchivedAfterPublish(nil, map[uuid.UUID]bool{keptID: true})
		assert.Empty(t, archived)
	})
}
