// Package recommend provides the content-based recommendation engine: a
// TF-IDF similarity index over the product catalog and top-N selection.
package recommend

import (
	"fmt"
	"sort"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/tfidf"
)

// Index is an immutable similarity index over one catalog generation: the
// fitted vectorizer plus one normalized feature row per product. It is safe
// for unsynchronized concurrent reads.
type Index struct {
	catalog    *catalog.Catalog
	vectorizer *tfidf.Vectorizer
	rows       [][]float32
}

// BuildIndex fits a vectorizer on the catalog documents and computes the
// feature matrix. Pure function of the catalog content and options; building
// over an empty catalog yields an empty index.
func BuildIndex(c *catalog.Catalog, opts tfidf.Options) *Index {
	docs := c.Documents()
	v := tfidf.Fit(docs, opts)
	return &Index{
		catalog:    c,
		vectorizer: v,
		rows:       v.TransformAll(docs),
	}
}

// Catalog returns the catalog generation this index was built from.
func (ix *Index) Catalog() *catalog.Catalog {
	return ix.catalog
}

// VocabularySize returns the number of feature columns.
func (ix *Index) VocabularySize() int {
	return ix.vectorizer.VocabularySize()
}

// Similarity returns the cosine similarity between products at catalog
// positions i and j.
func (ix *Index) Similarity(i, j int) float64 {
	return tfidf.Similarity(ix.rows[i], ix.rows[j])
}

// Recommend returns the top-n products most similar to the seed, excluding the
// seed itself. n is clamped to catalog size minus one. Results are ordered by
// non-increasing score; equal scores keep catalog insertion order.
func (ix *Index) Recommend(seedID string, n int) ([]models.Recommendation, error) {
	if ix.catalog.Len() < 2 {
		return nil, ErrEmptyCatalog
	}
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	seed, ok := ix.catalog.IndexOf(seedID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeed, seedID)
	}
	scores := make([]float64, ix.catalog.Len())
	for j := range ix.rows {
		if j == seed {
			continue
		}
		scores[j] = tfidf.Similarity(ix.rows[seed], ix.rows[j])
	}
	return ix.top(scores, n, seed), nil
}

// RecommendQuery ranks products against free query text vectorized with the
// fitted vocabulary. All products are candidates; n is clamped to catalog size.
func (ix *Index) RecommendQuery(query string, n int) ([]models.Recommendation, error) {
	if ix.catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}
	qv := ix.vectorizer.Transform(query)
	scores := make([]float64, ix.catalog.Len())
	for j := range ix.rows {
		scores[j] = tfidf.Similarity(qv, ix.rows[j])
	}
	return ix.top(scores, n, -1), nil
}

// top selects the n highest-scoring catalog positions, skipping exclude (-1
// for none). Candidates enter in catalog order and the sort is stable, which
// makes ascending insertion order the tie-break.
func (ix *Index) top(scores []float64, n, exclude int) []models.Recommendation {
	order := make([]int, 0, len(scores))
	for j := range scores {
		if j != exclude {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if n > len(order) {
		n = len(order)
	}
	recs := make([]models.Recommendation, n)
	for i := 0; i < n; i++ {
		p := ix.catalog.At(order[i])
		recs[i] = models.Recommendation{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Score:    scores[order[i]],
		}
	}
	return recs
}
