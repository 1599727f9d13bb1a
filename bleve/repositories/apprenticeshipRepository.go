package repositories

import (
	"course-directory-backend/config"
	"course-directory-backend/db/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

// apprenticeshipDoc is the flattened shape indexed for search. Only the
// fields the catalog search surfaces are stored.
type apprenticeshipDoc struct {
	ID            string `json:"id"`
	ProviderID    string `json:"provider_id"`
	Title         string `json:"title"`
	MarketingInfo string `json:"marketing_info"`
	Status        string `json:"status"`
	StandardCode  int    `json:"standard_code,omitempty"`
	FrameworkCode int    `json:"framework_code,omitempty"`
}

func toApprenticeshipDoc(record models.Apprenticeship) apprenticeshipDoc {
	doc := apprenticeshipDoc{
		ID:            record.ID.String(),
		ProviderID:    record.ProviderID.String(),
		Title:         record.Title,
		MarketingInfo: record.MarketingInfo,
		Status:        string(record.Status),
	}
	if record.StandardCode != nil {
		doc.StandardCode = *record.StandardCode
	}
	if record.FrameworkCode != nil {
		doc.FrameworkCode = *record.FrameworkCode
	}
	return doc
}

func (r *BleveRepository) IndexSingleApprenticeship(record models.Apprenticeship) error {
	err := r.indexer.IndexDocument(apprenticeshipIndex, record.ID.String(), toApprenticeshipDoc(record))
	if err != nil {
		config.Logger.Error("Failed to index apprenticeship",
			zap.Error(err),
			zap.String("apprenticeship_id", record.ID.String()))
		return err
	}
	return nil
}

func (r *BleveRepository) IndexExistingApprenticeships(records []models.Apprenticeship) error {
	docs := make(map[string]interface{}, len(records))
	for _, record := range records {
		docs[record.ID.String()] = toApprenticeshipDoc(record)
	}
	if err := r.indexer.BulkIndexDocuments(apprenticeshipIndex, docs); err != nil {
		config.Logger.Error("Failed to bulk index apprenticeships", zap.Error(err))
		return err
	}
	config.Logger.Info("Indexed apprenticeships", zap.Int("count", len(records)))
	return nil
}

// RebuildApprenticeshipIndex drops the search index and reindexes the given
// records, so a startup rebuild always matches the live catalog.
func (r *BleveRepository) RebuildApprenticeshipIndex(records []models.Apprenticeship) error {
	if err := r.indexer.DeleteIndex(apprenticeshipIndex); err != nil {
		config.Logger.Error("Failed to drop apprenticeship index", zap.Error(err))
		return err
	}
	return r.IndexExistingApprenticeships(records)
}

func (r *BleveRepository) DeleteApprenticeship(id string) error {
	return r.indexer.DeleteDocument(apprenticeshipIndex, id)
}

// SearchApprenticeships runs a free-text match over title and marketing info
// with optional exact filters on provider and status.
func (r *BleveRepository) SearchApprenticeships(queryStr, providerID, status string, size int) (*bleve.SearchResult, error) {
	var clauses []query.Query

	if queryStr != "" {
		match := bleve.NewMatchQuery(queryStr)
		clauses = append(clauses, match)
	} else {
		clauses = append(clauses, bleve.NewMatchAllQuery())
	}
	if providerID != "" {
		q := bleve.NewMatchPhraseQuery(providerID)
		q.SetField("provider_id")
		clauses = append(clauses, q)
	}
	if status != "" {
		q := bleve.NewMatchPhraseQuery(status)
		q.SetField("status")
		clauses = append(clauses, q)
	}

	if size <= 0 {
		size = 50
	}
	return r.indexer.SearchIndex(apprenticeshipIndex, bleve.NewConjunctionQuery(clauses...), size)
}

func (r *BleveRepository) GetApprenticeshipDocument(id string) (interface{}, error) {
	return r.indexer.GetDocument(apprenticeshipIndex, id)
}
