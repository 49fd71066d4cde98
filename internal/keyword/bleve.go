// Package keyword provides Bleve-backed keyword search over the product catalog.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/osusume/internal/catalog"
)

// defaultFuzziness is the Levenshtein edit distance used for fuzzy matching.
const defaultFuzziness = 2

// Result is a single keyword search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ProductIndex is a Bleve index over catalog products. It is rebuilt from
// scratch for every catalog generation, so by default it lives in memory.
type ProductIndex struct {
	index bleve.Index
}

// indexedProduct is the document shape stored in Bleve.
type indexedProduct struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// NewProductIndex creates a product index. An empty path creates an in-memory
// index; otherwise the index is created at path, replacing any previous index
// there. The index holds exactly one catalog generation, so stale on-disk
// state is never reused.
func NewProductIndex(path string) (*ProductIndex, error) {
	if path != "" {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to clear keyword index path: %w", err)
		}
	}
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so product queries
	// match exact words; the English analyzer's stemming surprises users.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	im.DefaultMapping = docMapping

	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(im)
	} else {
		index, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &ProductIndex{index: index}, nil
}

// IndexCatalog indexes every product in c in one batch.
func (b *ProductIndex) IndexCatalog(ctx context.Context, c *catalog.Catalog) error {
	batch := b.index.NewBatch()
	for _, p := range c.Products() {
		doc := indexedProduct{
			Name:        p.Name,
			Category:    p.Category,
			Description: p.Description,
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("failed to batch product %s: %w", p.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("keyword batch index failed: %w", err)
	}
	return nil
}

// Search runs a match query over name, category, and description, returning up
// to limit hits. With fuzzy enabled, each term matches within edit distance 2.
func (b *ProductIndex) Search(ctx context.Context, query string, limit int, fuzzy bool) ([]*Result, error) {
	var q blevequery.Query
	if fuzzy {
		q = buildFuzzyQuery(query, defaultFuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed products.
func (b *ProductIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the underlying Bleve index.
func (b *ProductIndex) Close() error {
	return b.index.Close()
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term,
// mimicking MatchQuery OR semantics with typo tolerance.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(queryStr))
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	if len(terms) == 1 {
		fq := bleve.NewFuzzyQuery(terms[0])
		fq.SetFuzziness(fuzziness)
		return fq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
