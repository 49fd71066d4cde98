package recommend

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/tfidf"
)

// Engine serves recommendations from the current index generation. Reload
// builds a new index and atomically swaps it in; in-flight requests keep the
// generation they captured.
type Engine struct {
	opts    tfidf.Options
	current atomic.Pointer[Index]
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for reload events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine and builds the initial index from c.
func NewEngine(c *catalog.Catalog, opts tfidf.Options, engineOpts ...EngineOption) *Engine {
	e := &Engine{opts: opts}
	for _, opt := range engineOpts {
		opt(e)
	}
	e.current.Store(BuildIndex(c, opts))
	return e
}

// Index returns the current index generation.
func (e *Engine) Index() *Index {
	return e.current.Load()
}

// Reload builds a fresh index from c and swaps it in. The swap happens only
// after the build completes, so readers never observe a half-built index.
func (e *Engine) Reload(c *catalog.Catalog) {
	ix := BuildIndex(c, e.opts)
	e.current.Store(ix)
	if e.logger != nil {
		e.logger.Info("similarity index reloaded",
			zap.Int("products", c.Len()),
			zap.Int("vocabulary", ix.VocabularySize()),
		)
	}
}

// Recommend returns the top-n products most similar to the seed product.
func (e *Engine) Recommend(seedID string, n int) ([]models.Recommendation, error) {
	return e.Index().Recommend(seedID, n)
}

// RecommendQuery ranks products against free query text.
func (e *Engine) RecommendQuery(query string, n int) ([]models.Recommendation, error) {
	return e.Index().RecommendQuery(query, n)
}
