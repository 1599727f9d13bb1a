package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-directory-backend/db/models"
	refservices "course-directory-backend/reference/services"
)

func staleTestSnapshot(venues []models.Venue, standards []models.Standard) *refservices.Snapshot {
	return refservices.NewSnapshot(testProviderID, fetchedAt, venues, nil, standards, nil)
}

func rowWithResolution(t *testing.T, rowNumber int, res models.RowResolution, codes []string, validatedOn time.Time) models.UploadRow {
	t.Helper()
	row := models.UploadRow{
		UploadID:        uuid.New(),
		RowNumber:       rowNumber,
		GroupID:         uuid.New(),
		LastValidatedOn: validatedOn,
	}
	require.NoError(t, row.SetResolution(res))
	require.NoError(t, row.SetErrorCodes(codes))
	return row
}

func TestSelectStaleRows(t *testing.T) {
	validatedOn := fetchedAt.Add(-time.Hour)
	before := validatedOn.Add(-time.Hour)
	after := validatedOn.Add(time.Minute)

	liveVenue := models.Venue{
		ID:         mainCampusID,
		ProviderID: testProviderID,
		Name:       "Main Campus",
		Status:     models.VenueStatusLive,
		UpdatedAt:  before,
	}

	code := 101
	version := 1
	standard := models.Standard{StandardCode: code, Version: version, Title: "Software Developer", UpdatedAt: before}

	t.Run("unchanged reference data selects nothing", func(t *testing.T) {
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{VenueID: &mainCampusID, StandardCode: &code, StandardVersion: &version}, nil, validatedOn),
		}
		snap := staleTestSnapshot([]models.Venue{liveVenue}, []models.Standard{standard})
		assert.Empty(t, SelectStaleRows(rows, snap))
	})

	t.Run("resolved venue vanished", func(t *testing.T) {
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{VenueID: &mainCampusID}, nil, validatedOn),
		}
		snap := staleTestSnapshot(nil, nil)
		assert.Equal(t, []int{2}, SelectStaleRows(rows, snap))
	})

	t.Run("resolved venue updated after last validation", func(t *testing.T) {
		changed := liveVenue
		changed.UpdatedAt = after
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{VenueID: &mainCampusID}, nil, validatedOn),
		}
		snap := staleTestSnapshot([]models.Venue{changed}, nil)
		assert.Equal(t, []int{2}, SelectStaleRows(rows, snap))
	})

	t.Run("unresolved venue error becomes stale when venues change", func(t *testing.T) {
		newVenue := models.Venue{ID: uuid.New(), ProviderID: testProviderID, Name: "New Site", Status: models.VenueStatusLive, UpdatedAt: after}
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{}, []string{ErrCodeVenueInvalid}, validatedOn),
		}
		snap := staleTestSnapshot([]models.Venue{newVenue}, nil)
		assert.Equal(t, []int{2}, SelectStaleRows(rows, snap))
	})

	t.Run("ambiguous venue error becomes stale when a duplicate is archived", func(t *testing.T) {
		// Two live venues shared a name at validation time; one has since
		// been archived, so only the untouched survivor is in the snapshot.
		// The archive still counts as a venue change.
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{}, []string{ErrCodeVenueAmbiguous}, validatedOn),
		}
		snap := staleTestSnapshot([]models.Venue{liveVenue}, nil)
		snap.AllVenuesChangedAt = after
		assert.Equal(t, []int{2}, SelectStaleRows(rows, snap))
	})

	t.Run("standard updated after last validation", func(t *testing.T) {
		changed := standard
		changed.UpdatedAt = after
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{StandardCode: &code, StandardVersion: &version}, nil, validatedOn),
		}
		snap := staleTestSnapshot(nil, []models.Standard{changed})
		assert.Equal(t, []int{2}, SelectStaleRows(rows, snap))
	})

	t.Run("pure text errors never go stale", func(t *testing.T) {
		changed := liveVenue
		changed.UpdatedAt = after
		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{}, []string{ErrCodeInformationRequired, ErrCodeContactEmailFormat}, validatedOn),
		}
		snap := staleTestSnapshot([]models.Venue{changed}, nil)
		assert.Empty(t, SelectStaleRows(rows, snap))
	})

	t.Run("selection is idempotent once rows are revalidated", func(t *testing.T) {
		changed := liveVenue
		changed.UpdatedAt = after
		snap := staleTestSnapshot([]models.Venue{changed}, nil)

		rows := []models.UploadRow{
			rowWithResolution(t, 2, models.RowResolution{VenueID: &mainCampusID}, nil, validatedOn),
		}
		require.Equal(t, []int{2}, SelectStaleRows(rows, snap))

		// Re-stamping the row at the snapshot time, as revalidation does,
		// takes it out of the stale set.
		rows[0].LastValidatedOn = snap.FetchedAt
		assert.Empty(t, SelectStaleRows(rows, snap))
	})
}
