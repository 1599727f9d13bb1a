package repositories

import (
	"testing"

	bleveindex "course-directory-backend/bleve/services"
	"course-directory-backend/config"
	"course-directory-backend/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) *BleveRepository {
	t.Helper()
	config.Logger = zap.NewNop()
	indexer := bleveindex.NewIndexingService(zap.NewNop(), t.TempDir())
	repo, _ := NewBleveRepository(indexer)
	return repo
}

func liveRecord(title string) models.Apprenticeship {
	return models.Apprenticeship{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		Status:     models.ApprenticeshipStatusLive,
		Title:      title,
	}
}

func TestRebuildApprenticeshipIndex(t *testing.T) {
	repo := newTestRepo(t)

	first := liveRecord("Software Developer")
	second := liveRecord("Civil Engineer")
	require.NoError(t, repo.RebuildApprenticeshipIndex([]models.Apprenticeship{first, second}))

	res, err := repo.SearchApprenticeships("", "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)

	doc, err := repo.GetApprenticeshipDocument(first.ID.String())
	require.NoError(t, err)
	require.NotNil(t, doc)

	// A rebuild replaces the index rather than appending to it.
	require.NoError(t, repo.RebuildApprenticeshipIndex([]models.Apprenticeship{second}))
	res, err = repo.SearchApprenticeships("", "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)

	_, err = repo.GetApprenticeshipDocument(first.ID.String())
	assert.Error(t, err)
}
