// Package main is the Osusume CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/ai"
	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/cli"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/keyword"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/server"
	"github.com/hyperjump/osusume/internal/tfidf"
	"github.com/hyperjump/osusume/internal/watcher"
	"github.com/hyperjump/osusume/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/osusume/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "osusume server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("osusume version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Keyword,
		components.Augmenter,
		cfg,
		logger,
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Catalog.Watch {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.New(cfg.Catalog.Path, func() {
			if err := srv.ReloadCatalog(context.Background()); err != nil {
				logger.Warn("automatic catalog reload failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start catalog watcher", zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct in-process mode)")
	userID := fs.String("user", "cli", "user id for the request")
	seedID := fs.String("seed", "", "seed product id")
	preferences := fs.String("preferences", "", "free-text preferences (used when no seed is given)")
	contextText := fs.String("context", "", "free-text context")
	n := fs.Int("n", 0, "number of recommendations (0 = server default)")
	noAI := fs.Bool("no-ai", false, "disable AI reranking for this request")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *seedID == "" && *preferences == "" && *contextText == "" {
		fmt.Println("Usage: osusume recommend [flags] (--seed <id> | --preferences <text>)")
		fs.PrintDefaults()
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &models.RecommendRequest{
		UserID:             *userID,
		SeedID:             *seedID,
		NumRecommendations: *n,
		Preferences:        *preferences,
		Context:            *contextText,
	}
	if *noAI {
		f := false
		req.AIEnabled = &f
	}

	if *serverURL != "" {
		resp, err := recommendViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRecommendations(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct in-process mode (when the server is not running).
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := req.Validate(cfg.Recommend.DefaultLimit, cfg.Recommend.MaxLimit); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid request: %v\n", err)
		os.Exit(1)
	}

	startTime := time.Now()
	var recs []models.Recommendation
	if req.SeedID != "" {
		recs, err = components.Engine.Recommend(req.SeedID, req.NumRecommendations)
	} else {
		recs, err = components.Engine.RecommendQuery(req.Preferences+" "+req.Context, req.NumRecommendations)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	aiUsed := false
	if components.Augmenter != nil && !*noAI {
		recs = components.Augmenter.Rerank(context.Background(), recs, "")
		aiUsed = true
	}
	resp := &models.RecommendResponse{
		UserID:          req.UserID,
		Recommendations: recs,
		AIUsed:          aiUsed,
		QueryTime:       time.Since(startTime).Milliseconds(),
	}
	if err := cli.WriteRecommendations(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendViaHTTP(serverURL string, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/recommend", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Engine    *recommend.Engine
	Keyword   *keyword.ProductIndex
	Augmenter *ai.Augmenter
	Cache     *ai.Cache
}

func (c *Components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

func indexOptions(cfg *config.Config) tfidf.Options {
	return tfidf.Options{
		MaxFeatures: cfg.Index.MaxFeatures,
		Tokenizer: tfidf.TokenizerOptions{
			Stopwords: cfg.Index.StopwordsOrDefault(),
			Bigrams:   cfg.Index.Bigrams,
		},
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.Delimiter)
	if err != nil {
		return nil, err
	}

	engine := recommend.NewEngine(c, indexOptions(cfg), recommend.WithLogger(logger))
	logger.Info("similarity index built",
		zap.Int("products", c.Len()),
		zap.Int("vocabulary", engine.Index().VocabularySize()),
	)

	kw, err := keyword.NewProductIndex(cfg.Keyword.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	if err := kw.IndexCatalog(context.Background(), c); err != nil {
		_ = kw.Close()
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}

	components := &Components{Engine: engine, Keyword: kw}

	if cfg.AI.Enabled {
		provider, err := ai.NewProvider(cfg.AI)
		if err != nil {
			_ = kw.Close()
			return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
		}
		augOpts := []ai.AugmenterOption{ai.WithAugmenterLogger(logger)}
		if cfg.AI.CachePath != "" {
			cache, err := ai.NewCache(cfg.AI.CachePath, time.Duration(cfg.AI.CacheTTLSeconds)*time.Second)
			if err != nil {
				_ = kw.Close()
				return nil, fmt.Errorf("failed to initialize AI cache: %w", err)
			}
			components.Cache = cache
			augOpts = append(augOpts, ai.WithCache(cache))
		}
		components.Augmenter = ai.NewAugmenter(provider, cfg.AI, augOpts...)
		logger.Info("AI augmentation enabled",
			zap.String("provider", cfg.AI.Provider),
			zap.String("model", cfg.AI.Model),
		)
	}

	return components, nil
}

func printUsage() {
	fmt.Println(`osusume - Content-based product recommendation service

Usage:
  osusume server [flags]              Start the HTTP server
  osusume recommend [flags]           Get recommendations for a seed product or preferences
  osusume status [flags]              Show catalog/index/AI status
  osusume version                     Show version
  osusume help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/osusume/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --server string       Server URL (default: http://localhost:8080). Use empty (--server "") for direct in-process mode.
  --config string       Config file path (for direct mode)
  --user string         User id for the request (default: cli)
  --seed string         Seed product id
  --preferences string  Free-text preferences (used when no seed is given)
  --context string      Free-text context
  --n int               Number of recommendations (0 = server default)
  --no-ai               Disable AI reranking for this request
  --output string       Output format: text or json (default: text)

Examples:
  osusume server
  osusume recommend --seed prod-42
  osusume recommend --preferences "warm winter clothing" --n 10
  osusume recommend --seed prod-42 --output json
  osusume status`)
}
