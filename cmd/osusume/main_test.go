package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadConfigCwdFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7272\n"), 0644); err != nil {
		t.Fatal(err)
	}
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if filepath.Base(resolved) != "config.yaml" || filepath.Dir(resolved) != dir {
		t.Errorf("resolved = %q, want config.yaml under %q", resolved, dir)
	}
	if cfg.Server.Port != 7272 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestIndexOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "index:\n  max_features: 123\n  bigrams: true\n  stopwords: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	opts := indexOptions(cfg)
	if opts.MaxFeatures != 123 || !opts.Tokenizer.Bigrams || opts.Tokenizer.Stopwords {
		t.Errorf("opts = %+v", opts)
	}
}
