package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/ai"
	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/keyword"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/tfidf"
)

const testCatalogCSV = "id,name,category,description\n" +
	"p1,Red Cotton Shirt,clothing,soft red cotton shirt casual wear\n" +
	"p2,Blue Cotton Shirt,clothing,soft blue cotton shirt casual wear\n" +
	"p3,Wool Sweater,clothing,warm wool sweater for winter\n" +
	"p4,Phone Case,electronics,protective silicone phone case\n" +
	"p5,Wireless Charger,electronics,fast wireless phone charger pad\n"

type testServerOptions struct {
	augmenter *ai.Augmenter
	aiConfig  config.AIConfig
}

func newTestServer(t *testing.T, opts testServerOptions) (*Server, string) {
	t.Helper()
	catalogPath := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(catalogPath, []byte(testCatalogCSV), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Catalog.Path = catalogPath
	cfg.AI = opts.aiConfig

	c, err := catalog.Load(catalogPath, ",")
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	engine := recommend.NewEngine(c, tfidf.Options{})

	kw, err := keyword.NewProductIndex("")
	if err != nil {
		t.Fatalf("NewProductIndex: %v", err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	if err := kw.IndexCatalog(context.Background(), c); err != nil {
		t.Fatalf("IndexCatalog: %v", err)
	}

	return NewServer(engine, kw, opts.augmenter, cfg, zap.NewNop()), catalogPath
}

func postRecommend(t *testing.T, h http.Handler, req models.RecommendRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeRecommend(t *testing.T, w *httptest.ResponseRecorder) models.RecommendResponse {
	t.Helper()
	var resp models.RecommendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestHandleRecommendSeed(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "p1", NumRecommendations: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeRecommend(t, w)
	if resp.UserID != "u1" {
		t.Errorf("user_id = %q", resp.UserID)
	}
	if resp.RequestID == "" {
		t.Error("request_id is empty")
	}
	if len(resp.Recommendations) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(resp.Recommendations))
	}
	if resp.Recommendations[0].ID != "p2" {
		t.Errorf("top recommendation = %s, want p2", resp.Recommendations[0].ID)
	}
	for _, r := range resp.Recommendations {
		if r.ID == "p1" {
			t.Error("seed returned in its own recommendations")
		}
	}
	if resp.AIUsed {
		t.Error("ai_used true with no augmenter configured")
	}
}

func TestHandleRecommendPreferences(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", Preferences: "warm winter sweater", NumRecommendations: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeRecommend(t, w)
	if len(resp.Recommendations) == 0 || resp.Recommendations[0].ID != "p3" {
		t.Errorf("recommendations = %+v, want p3 first", resp.Recommendations)
	}
}

func TestHandleRecommendValidation(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	h := s.Handler()

	tests := []struct {
		name string
		req  models.RecommendRequest
	}{
		{"missing user id", models.RecommendRequest{SeedID: "p1"}},
		{"no seed or preferences", models.RecommendRequest{UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postRecommend(t, h, tt.req); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleRecommendMalformedBody(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRecommendUnknownSeed(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleRecommendClampsN(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "p1", NumRecommendations: 999})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeRecommend(t, w)
	// max_limit default is 20, catalog caps it further at 4.
	if len(resp.Recommendations) != 4 {
		t.Errorf("got %d recommendations, want 4", len(resp.Recommendations))
	}
}

func TestHandleRecommendWithAI(t *testing.T) {
	aiCfg := config.AIConfig{
		Enabled:        true,
		Provider:       "script",
		TimeoutSeconds: 5,
		Breaker:        config.BreakerConfig{FailureThreshold: 5, ResetTimeoutSeconds: 30},
	}
	provider := ai.NewScriptProvider(`["p3", "p2", "p4", "p5"]`)
	aug := ai.NewAugmenter(provider, aiCfg)

	s, _ := newTestServer(t, testServerOptions{augmenter: aug, aiConfig: aiCfg})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "p1", NumRecommendations: 4})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeRecommend(t, w)
	if !resp.AIUsed {
		t.Error("ai_used = false, want true")
	}
	if resp.Recommendations[0].ID != "p3" {
		t.Errorf("top after rerank = %s, want p3", resp.Recommendations[0].ID)
	}
}

func TestHandleRecommendAIOptOut(t *testing.T) {
	aiCfg := config.AIConfig{
		Enabled:        true,
		Provider:       "script",
		TimeoutSeconds: 5,
		Breaker:        config.BreakerConfig{FailureThreshold: 5, ResetTimeoutSeconds: 30},
	}
	provider := ai.NewScriptProvider(`["p3", "p2", "p4", "p5"]`)
	aug := ai.NewAugmenter(provider, aiCfg)

	s, _ := newTestServer(t, testServerOptions{augmenter: aug, aiConfig: aiCfg})
	off := false
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "p1", AIEnabled: &off})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeRecommend(t, w)
	if resp.AIUsed {
		t.Error("ai_used = true after opt-out")
	}
	if provider.Calls() != 0 {
		t.Errorf("provider called %d times after opt-out", provider.Calls())
	}
}

func TestHandleRecommendAIFailureDegrades(t *testing.T) {
	aiCfg := config.AIConfig{
		Enabled:        true,
		Provider:       "script",
		TimeoutSeconds: 5,
		Breaker:        config.BreakerConfig{FailureThreshold: 5, ResetTimeoutSeconds: 30},
	}
	// Empty script: every Generate call fails.
	aug := ai.NewAugmenter(ai.NewScriptProvider(), aiCfg)

	s, _ := newTestServer(t, testServerOptions{augmenter: aug, aiConfig: aiCfg})
	w := postRecommend(t, s.Handler(), models.RecommendRequest{UserID: "u1", SeedID: "p1", NumRecommendations: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite provider failure", w.Code)
	}
	resp := decodeRecommend(t, w)
	if resp.Recommendations[0].ID != "p2" {
		t.Errorf("top = %s, want base order p2", resp.Recommendations[0].ID)
	}
}

func TestHandleGetProduct(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	h := s.Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/products/p3", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Wool Sweater" {
		t.Errorf("name = %q", p.Name)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/products/ghost", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleSearchProducts(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	h := s.Handler()

	r := httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=wool+sweater", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Query   string `json:"query"`
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].ID != "p3" {
		t.Errorf("results = %+v, want p3 first", resp.Results)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/products/search", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}
}

func TestHandleReload(t *testing.T) {
	s, catalogPath := newTestServer(t, testServerOptions{})
	h := s.Handler()

	updated := testCatalogCSV + "p6,Leather Boots,footwear,waterproof leather hiking boots\n"
	if err := os.WriteFile(catalogPath, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	pr := httptest.NewRequest(http.MethodGet, "/api/v1/products/p6", nil)
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pr)
	if pw.Code != http.StatusOK {
		t.Errorf("new product not served after reload: %d", pw.Code)
	}
}

func TestHandleReloadFailureKeepsOldGeneration(t *testing.T) {
	s, catalogPath := newTestServer(t, testServerOptions{})
	h := s.Handler()

	// Corrupt the catalog: duplicate ids fail validation.
	if err := os.WriteFile(catalogPath, []byte("id,name\np1,First\np1,Second\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	// The previous generation keeps serving.
	rw := postRecommend(t, h, models.RecommendRequest{UserID: "u1", SeedID: "p1", NumRecommendations: 2})
	if rw.Code != http.StatusOK {
		t.Errorf("old generation stopped serving: %d", rw.Code)
	}
}

func TestReloadCatalogConcurrentKeepsIndicesInStep(t *testing.T) {
	s, catalogPath := newTestServer(t, testServerOptions{})

	small := testCatalogCSV
	large := testCatalogCSV + "p6,Leather Boots,footwear,waterproof leather hiking boots\n"

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := small
			if i%2 == 0 {
				content = large
			}
			// Rename over the live file so readers never see a partial write.
			tmp := fmt.Sprintf("%s.tmp%d", catalogPath, i)
			if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
				t.Error(err)
				return
			}
			if err := os.Rename(tmp, catalogPath); err != nil {
				t.Error(err)
				return
			}
			if err := s.ReloadCatalog(context.Background()); err != nil {
				t.Errorf("ReloadCatalog: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Whatever catalog content won, both indices must serve the same
	// generation.
	products := s.engine.Index().Catalog().Len()
	count, err := s.keyword.Load().DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if int(count) != products {
		t.Errorf("keyword index has %d products but engine has %d", count, products)
	}
}

func TestHandleStatus(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["products"].(float64) != 5 {
		t.Errorf("products = %v, want 5", resp["products"])
	}
	aiInfo := resp["ai"].(map[string]interface{})
	if aiInfo["enabled"].(bool) {
		t.Error("ai.enabled = true without augmenter")
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, testServerOptions{})
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
