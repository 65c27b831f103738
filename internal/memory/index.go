package memory

import (
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

// openIndex opens or creates a bleve index at path. An empty path creates an
// in-memory index. A corrupted index is deleted and recreated.
func openIndex(path string, m mapping.IndexMapping, logger *zap.Logger) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(m)
	}

	index, err := bleve.Open(path)
	if err == nil {
		return index, nil
	}
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		index, err = bleve.New(path, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", path, err)
		}
		logger.Debug("index created", zap.String("path", path))
		return index, nil
	}

	logger.Warn("index appears corrupted, recreating", zap.String("path", path), zap.Error(err))
	if index != nil {
		_ = index.Close()
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove corrupted index %s: %w", path, err)
	}
	index, err = bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate index %s: %w", path, err)
	}
	return index, nil
}

func keywordField() *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = keyword.Name
	f.Store = true
	f.Index = true
	f.IncludeInAll = false
	return f
}

func textField() *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = standard.Name
	f.Store = false
	f.Index = true
	return f
}

// knowledgeMapping indexes memory content for match queries; kind is a filter.
func knowledgeMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", textField())
	doc.AddFieldMappingsAt("kind", keywordField())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// toolMapping indexes tool names and descriptions.
func toolMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField())
	doc.AddFieldMappingsAt("description", textField())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// search runs a match query and returns document ids in score order.
func search(index bleve.Index, query string, limit int) ([]string, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
