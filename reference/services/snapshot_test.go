package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-directory-backend/db/models"
)

func TestSnapshotLookups(t *testing.T) {
	providerID := uuid.New()
	fetchedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ref := "MC-01"
	venueID := uuid.New()
	venues := []models.Venue{
		{ID: venueID, ProviderID: providerID, Name: "Main Campus", ProviderVenueRef: &ref, Status: models.VenueStatusLive},
		{ID: uuid.New(), ProviderID: providerID, Name: "Annex", Status: models.VenueStatusLive},
		{ID: uuid.New(), ProviderID: providerID, Name: "annex", Status: models.VenueStatusLive},
	}

	northWest := "E12000002"
	regions := []models.Region{
		{ID: northWest, Name: "North West"},
		{ID: "E10000017", Name: "Lancashire", ParentID: &northWest},
		{ID: "E08000003", Name: "Manchester", ParentID: &northWest},
	}

	standards := []models.Standard{{StandardCode: 101, Version: 1, Title: "Software Developer"}}
	frameworks := []models.Framework{{FrameworkCode: 403, ProgType: 2, PathwayCode: 1, Title: "Engineering Framework"}}

	snap := NewSnapshot(providerID, fetchedAt, venues, regions, standards, frameworks)

	t.Run("venue by id", func(t *testing.T) {
		require.NotNil(t, snap.VenueByID(venueID))
		assert.Nil(t, snap.VenueByID(uuid.New()))
	})

	t.Run("venue ref lookup is case insensitive", func(t *testing.T) {
		matches := snap.VenuesByRef(" mc-01 ")
		require.Len(t, matches, 1)
		assert.Equal(t, venueID, matches[0].ID)
	})

	t.Run("venue name lookup folds case", func(t *testing.T) {
		assert.Len(t, snap.VenuesByName("ANNEX"), 2)
	})

	t.Run("region expands to sub region codes", func(t *testing.T) {
		codes, ok := snap.SubRegionCodesForRegion("north west")
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"E10000017", "E08000003"}, codes)
	})

	t.Run("unknown region is not ok", func(t *testing.T) {
		_, ok := snap.SubRegionCodesForRegion("Narnia")
		assert.False(t, ok)
	})

	t.Run("sub region resolves to its code", func(t *testing.T) {
		code, ok := snap.SubRegionCode("Manchester")
		require.True(t, ok)
		assert.Equal(t, "E08000003", code)
	})

	t.Run("qualification lookups", func(t *testing.T) {
		require.NotNil(t, snap.StandardByKey(101, 1))
		assert.Nil(t, snap.StandardByKey(101, 2))
		require.NotNil(t, snap.FrameworkByKey(403, 2, 1))
		assert.Nil(t, snap.FrameworkByKey(403, 2, 9))
	})
}

func TestSnapshotLatestChanges(t *testing.T) {
	providerID := uuid.New()
	now := time.Now().UTC()

	venues := []models.Venue{
		{ID: uuid.New(), Name: "A", Status: models.VenueStatusLive, UpdatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Name: "B", Status: models.VenueStatusLive, UpdatedAt: now},
	}
	snap := NewSnapshot(providerID, now, venues, nil, nil, nil)

	assert.Equal(t, now, snap.LatestVenueChange())
	assert.True(t, snap.LatestStandardChange().IsZero())
	assert.True(t, snap.LatestFrameworkChange().IsZero())

	t.Run("archived venue changes dominate the live set", func(t *testing.T) {
		archivedAt := now.Add(time.Minute)
		snap.AllVenuesChangedAt = archivedAt
		assert.Equal(t, archivedAt, snap.LatestVenueChange())
	})
}
