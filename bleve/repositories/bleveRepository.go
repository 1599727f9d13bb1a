package repositories

import (
	bleveindex "course-directory-backend/bleve/services"
	"course-directory-backend/db/models"

	"github.com/blevesearch/bleve/v2"
)

const apprenticeshipIndex = "apprenticeships"

type BleveRepository struct {
	indexer *bleveindex.IndexingService
}

type BleveRepositoryInterface interface {
	IndexSingleApprenticeship(record models.Apprenticeship) error
	IndexExistingApprenticeships(records []models.Apprenticeship) error
	DeleteApprenticeship(id string) error
	SearchApprenticeships(queryStr, providerID, status string, size int) (*bleve.SearchResult, error)
	GetApprenticeshipDocument(id string) (interface{}, error)
}

func NewBleveRepository(indexer *bleveindex.IndexingService) (*BleveRepository, BleveRepositoryInterface) {
	repo := &BleveRepository{indexer: indexer}
	return repo, repo
}
