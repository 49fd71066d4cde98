package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Recommend.DefaultLimit, s.config.Recommend.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("recommend request",
		zap.String("user_id", req.UserID),
		zap.String("seed_id", req.SeedID),
		zap.Int("n", req.NumRecommendations),
	)

	aiRequested := s.augmenter != nil && (req.AIEnabled == nil || *req.AIEnabled)

	// An AI-generated profile enriches text queries, never seed queries: the
	// seed product already is the query.
	profile := ""
	if aiRequested && s.config.AI.Profile && req.SeedID == "" {
		profile = s.augmenter.Profile(r.Context(), req.Preferences, req.Context)
	}

	var (
		recs []models.Recommendation
		err  error
	)
	if req.SeedID != "" {
		recs, err = s.engine.Recommend(req.SeedID, req.NumRecommendations)
	} else {
		query := strings.TrimSpace(strings.Join([]string{req.Preferences, req.Context, profile}, " "))
		recs, err = s.engine.RecommendQuery(query, req.NumRecommendations)
	}
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrUnknownSeed):
			s.respondError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, recommend.ErrEmptyCatalog):
			s.respondError(w, http.StatusNotFound, "no recommendations available")
		default:
			s.logger.Error("recommendation failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	explanation := ""
	if aiRequested {
		recs = s.augmenter.Rerank(r.Context(), recs, profile)
		if s.config.AI.Explain {
			explanation = s.augmenter.Explain(r.Context(), recs, req.Preferences)
		}
	}

	s.respondJSON(w, http.StatusOK, &models.RecommendResponse{
		UserID:          req.UserID,
		RequestID:       uuid.NewString(),
		Recommendations: recs,
		Explanation:     explanation,
		AIUsed:          aiRequested,
		QueryTime:       time.Since(startTime).Milliseconds(),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.engine.Index().Catalog().Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	kw := s.keyword.Load()
	if kw == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := s.config.Recommend.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > s.config.Recommend.MaxLimit {
			n = s.config.Recommend.MaxLimit
		}
		limit = n
	}
	fuzzy := r.URL.Query().Get("fuzzy") == "true"

	hits, err := kw.Search(r.Context(), q, limit, fuzzy)
	if err != nil {
		s.logger.Error("product search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c := s.engine.Index().Catalog()
	type productHit struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	results := make([]productHit, 0, len(hits))
	for _, h := range hits {
		p, ok := c.Get(h.ID)
		if !ok {
			continue // hit from a previous generation
		}
		results = append(results, productHit{ID: p.ID, Name: p.Name, Score: h.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ReloadCatalog(r.Context()); err != nil {
		s.logger.Error("catalog reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "reloaded",
		"products": s.engine.Index().Catalog().Len(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ix := s.engine.Index()
	resp := map[string]interface{}{
		"products":        ix.Catalog().Len(),
		"vocabulary_size": ix.VocabularySize(),
		"catalog_path":    s.config.Catalog.Path,
	}
	aiInfo := map[string]interface{}{
		"enabled": s.augmenter != nil,
	}
	if s.augmenter != nil {
		aiInfo["provider"] = s.config.AI.Provider
		aiInfo["model"] = s.config.AI.Model
		aiInfo["breaker_state"] = s.augmenter.BreakerState()
	}
	resp["ai"] = aiInfo
	if kw := s.keyword.Load(); kw != nil {
		if count, err := kw.DocCount(); err == nil {
			resp["keyword_index_size"] = count
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
