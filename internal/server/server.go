// Package server provides the HTTP API for Osusume.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/ai"
	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/keyword"
	"github.com/hyperjump/osusume/internal/recommend"
)

// Server is the HTTP server for the Osusume API.
type Server struct {
	engine    *recommend.Engine
	keyword   atomic.Pointer[keyword.ProductIndex]
	augmenter *ai.Augmenter
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
	// reloadMu serializes writers; readers stay lock-free on the swapped
	// pointers.
	reloadMu sync.Mutex
}

// NewServer creates a server with the given dependencies. augmenter may be
// nil, which disables AI augmentation entirely. kw may be nil when keyword
// search is not initialized.
func NewServer(
	engine *recommend.Engine,
	kw *keyword.ProductIndex,
	augmenter *ai.Augmenter,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		engine:    engine,
		augmenter: augmenter,
		config:    cfg,
		logger:    logger,
	}
	if kw != nil {
		s.keyword.Store(kw)
	}
	return s
}

// Handler builds the chi router for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/recommend", s.handleRecommend)
	r.Get("/api/v1/products/{id}", s.handleGetProduct)
	r.Get("/api/v1/products/search", s.handleSearchProducts)
	r.Post("/api/v1/reload", s.handleReload)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ReloadCatalog loads the catalog file again, rebuilds the similarity and
// keyword indices, and swaps them in atomically. On any failure the previous
// generation keeps serving and the error is returned. Reloads are serialized:
// the watcher callback and the reload endpoint can fire concurrently, and
// interleaved swaps would leave the two indices on different catalog
// generations.
func (s *Server) ReloadCatalog(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	c, err := catalog.Load(s.config.Catalog.Path, s.config.Catalog.Delimiter)
	if err != nil {
		return err
	}
	kw, err := keyword.NewProductIndex(s.config.Keyword.IndexPath)
	if err != nil {
		return err
	}
	if err := kw.IndexCatalog(ctx, c); err != nil {
		_ = kw.Close()
		return err
	}
	s.engine.Reload(c)
	if old := s.keyword.Swap(kw); old != nil {
		_ = old.Close()
	}
	s.logger.Info("catalog reloaded", zap.Int("products", c.Len()))
	return nil
}
