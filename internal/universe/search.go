package universe

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/trogers1052/finfun/internal/models"
)

// Index is an in-memory full text index over the ticker universe
type Index struct {
	index   bleve.Index
	tickers map[string]models.Ticker
}

type tickerDoc struct {
	Key      string `json:"key"`
	Security string `json:"security"`
	Sector   string `json:"sector"`
}

// NewIndex indexes tickers in memory
func NewIndex(tickers []models.Ticker) (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	byID := make(map[string]models.Ticker, len(tickers))
	batch := index.NewBatch()
	for _, t := range tickers {
		id := strings.ToUpper(t.Symbol)
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = t
		doc := tickerDoc{
			Key:      strings.ToLower(t.Symbol),
			Security: t.Security,
			Sector:   t.Sector,
		}
		if err := batch.Index(id, doc); err != nil {
			return nil, fmt.Errorf("failed to add to batch: %w", err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &Index{index: index, tickers: byID}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	keyField := bleve.NewTextFieldMapping()
	keyField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("key", keyField)

	docMapping.AddFieldMappingsAt("security", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("sector", bleve.NewTextFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Search returns up to limit tickers matching query: exact symbol first,
// then symbol prefix, then security name
func (i *Index) Search(query string, limit int) ([]models.Ticker, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Ticker{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	lower := strings.ToLower(query)

	exact := bleve.NewTermQuery(lower)
	exact.SetField("key")
	exact.SetBoost(10.0)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("key")
	prefix.SetBoost(5.0)

	name := bleve.NewMatchQuery(query)
	name.SetField("security")
	name.SetBoost(3.0)

	namePrefix := bleve.NewPrefixQuery(lower)
	namePrefix.SetField("security")
	namePrefix.SetBoost(1.5)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(exact, prefix, name, namePrefix), limit, 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("ticker search failed: %w", err)
	}

	out := make([]models.Ticker, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if t, ok := i.tickers[hit.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns the ticker for symbol
func (i *Index) Get(symbol string) (models.Ticker, bool) {
	t, ok := i.tickers[strings.ToUpper(symbol)]
	return t, ok
}

// Len returns the number of indexed tickers
func (i *Index) Len() int {
	return len(i.tickers)
}

// Close releases the index
func (i *Index) Close() error {
	return i.index.Close()
}
