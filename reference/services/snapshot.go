package services

import (
	"strings"
	"time"

	"course-directory-backend/db/models"
	"course-directory-backend/reference/repositories"

	"github.com/google/uuid"
)

// Snapshot is a read-only view of a provider's reference data, fetched once
// at the start of a processing run and passed into the validator. It is never
// refreshed mid-run; reference drift is reconciled by the revalidation
// selector instead.
type Snapshot struct {
	ProviderID uuid.UUID
	FetchedAt  time.Time

	Venues     []models.Venue
	Regions    []models.Region
	Standards  []models.Standard
	Frameworks []models.Framework

	// AllVenuesChangedAt is the most recent UpdatedAt across every venue the
	// provider has, archived ones included. Archiving removes a venue from
	// the live set, so a scan over Venues alone would miss that change.
	AllVenuesChangedAt time.Time

	venuesByID   map[uuid.UUID]*models.Venue
	venuesByRef  map[string][]*models.Venue
	venuesByName map[string][]*models.Venue

	// region name (lowercased) -> sub-region codes under it
	subRegionsByRegionName map[string][]string
	// sub-region name (lowercased) -> code
	subRegionCodeByName map[string]string

	standardsByKey  map[[2]int]*models.Standard
	frameworksByKey map[[3]int]*models.Framework
}

// NewSnapshot builds the lookup tables the validator needs.
func NewSnapshot(providerID uuid.UUID, fetchedAt time.Time, venues []models.Venue, regions []models.Region, standards []models.Standard, frameworks []models.Framework) *Snapshot {
	s := &Snapshot{
		ProviderID: providerID,
		FetchedAt:  fetchedAt,
		Venues:     venues,
		Regions:    regions,
		Standards:  standards,
		Frameworks: frameworks,

		venuesByID:             make(map[uuid.UUID]*models.Venue),
		venuesByRef:            make(map[string][]*models.Venue),
		venuesByName:           make(map[string][]*models.Venue),
		subRegionsByRegionName: make(map[string][]string),
		subRegionCodeByName:    make(map[string]string),
		standardsByKey:         make(map[[2]int]*models.Standard),
		frameworksByKey:        make(map[[3]int]*models.Framework),
	}

	for i := range venues {
		v := &venues[i]
		s.venuesByID[v.ID] = v
		name := strings.ToLower(strings.TrimSpace(v.Name))
		s.venuesByName[name] = append(s.venuesByName[name], v)
		if v.ProviderVenueRef != nil && strings.TrimSpace(*v.ProviderVenueRef) != "" {
			ref := strings.ToLower(strings.TrimSpace(*v.ProviderVenueRef))
			s.venuesByRef[ref] = append(s.venuesByRef[ref], v)
		}
	}

	regionNameByID := make(map[string]string, len(regions))
	for i := range regions {
		if regions[i].ParentID == nil {
			regionNameByID[regions[i].ID] = strings.ToLower(regions[i].Name)
		}
	}
	for i := range regions {
		r := &regions[i]
		if r.ParentID == nil {
			continue
		}
		s.subRegionCodeByName[strings.ToLower(r.Name)] = r.ID
		if parentName, ok := regionNameByID[*r.ParentID]; ok {
			s.subRegionsByRegionName[parentName] = append(s.subRegionsByRegionName[parentName], r.ID)
		}
	}

	for i := range standards {
		st := &standards[i]
		s.standardsByKey[[2]int{st.StandardCode, st.Version}] = st
	}
	for i := range frameworks {
		fw := &frameworks[i]
		s.frameworksByKey[[3]int{fw.FrameworkCode, fw.ProgType, fw.PathwayCode}] = fw
	}

	return s
}

// VenueByID looks a venue up by its id; nil when it is no longer live.
func (s *Snapshot) VenueByID(id uuid.UUID) *models.Venue {
	return s.venuesByID[id]
}

// VenuesByRef returns every live venue whose provider reference matches,
// case-insensitively.
func (s *Snapshot) VenuesByRef(ref string) []*models.Venue {
	return s.venuesByRef[strings.ToLower(strings.TrimSpace(ref))]
}

// VenuesByName returns every live venue whose name matches, case-insensitively.
func (s *Snapshot) VenuesByName(name string) []*models.Venue {
	return s.venuesByName[strings.ToLower(strings.TrimSpace(name))]
}

// SubRegionCodesForRegion expands a top-level region name into its sub-region
// codes. ok is false when the name is not a known region.
func (s *Snapshot) SubRegionCodesForRegion(name string) ([]string, bool) {
	codes, ok := s.subRegionsByRegionName[strings.ToLower(strings.TrimSpace(name))]
	return codes, ok
}

// SubRegionCode resolves a sub-region name to its code.
func (s *Snapshot) SubRegionCode(name string) (string, bool) {
	code, ok := s.subRegionCodeByName[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// StandardByKey looks up a standard by (code, version).
func (s *Snapshot) StandardByKey(code, version int) *models.Standard {
	return s.standardsByKey[[2]int{code, version}]
}

// FrameworkByKey looks up a framework by (code, prog type, pathway code).
func (s *Snapshot) FrameworkByKey(code, progType, pathwayCode int) *models.Framework {
	return s.frameworksByKey[[3]int{code, progType, pathwayCode}]
}

// LatestVenueChange returns the most recent change across the provider's
// whole venue set, archived venues included; zero when there are none.
func (s *Snapshot) LatestVenueChange() time.Time {
	latest := s.AllVenuesChangedAt
	for i := range s.Venues {
		if s.Venues[i].UpdatedAt.After(latest) {
			latest = s.Venues[i].UpdatedAt
		}
	}
	return latest
}

// LatestStandardChange returns the most recent UpdatedAt across the standard
// catalog; zero when it is empty.
func (s *Snapshot) LatestStandardChange() time.Time {
	var latest time.Time
	for i := range s.Standards {
		if s.Standards[i].UpdatedAt.After(latest) {
			latest = s.Standards[i].UpdatedAt
		}
	}
	return latest
}

// LatestFrameworkChange returns the most recent UpdatedAt across the
// framework catalog; zero when it is empty.
func (s *Snapshot) LatestFrameworkChange() time.Time {
	var latest time.Time
	for i := range s.Frameworks {
		if s.Frameworks[i].UpdatedAt.After(latest) {
			latest = s.Frameworks[i].UpdatedAt
		}
	}
	return latest
}

// SnapshotProvider fetches a provider's current reference data in one shot.
type SnapshotProvider struct {
	repo repositories.ReferenceRepository
}

func NewSnapshotProvider(repo repositories.ReferenceRepository) *SnapshotProvider {
	return &SnapshotProvider{repo: repo}
}

// Snapshot fetches venues, regions and the qualification catalogs for a
// provider, stamped with the fetch time the validator uses as its clock.
func (p *SnapshotProvider) Snapshot(providerID uuid.UUID) (*Snapshot, error) {
	venues, err := p.repo.GetLiveVenuesByProvider(providerID)
	if err != nil {
		return nil, err
	}
	regions, err := p.repo.GetRegions()
	if err != nil {
		return nil, err
	}
	standards, err := p.repo.GetStandards()
	if err != nil {
		return nil, err
	}
	frameworks, err := p.repo.GetFrameworks()
	if err != nil {
		return nil, err
	}
	venuesChangedAt, err := p.repo.GetLatestVenueChange(providerID)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(providerID, time.Now().UTC(), venues, regions, standards, frameworks)
	snap.AllVenuesChangedAt = venuesChangedAt
	return snap, nil
}
