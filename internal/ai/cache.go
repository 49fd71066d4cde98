package ai

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Cache is a SQLite-backed store of provider responses keyed by prompt hash.
// Entries expire after the configured TTL; expired rows are deleted lazily on
// lookup. A cache hit skips the provider call entirely.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewCache opens or creates the cache database at dbPath. Parent directories
// are created if they do not exist.
func NewCache(dbPath string, ttl time.Duration) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		prompt_hash TEXT PRIMARY KEY,
		response TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached response for the prompt, or false on miss or expiry.
func (c *Cache) Get(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	key := promptHash(systemPrompt, userPrompt)
	var (
		response  string
		createdAt time.Time
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT response, created_at FROM responses WHERE prompt_hash = ?`, key,
	).Scan(&response, &createdAt)
	if err != nil {
		return "", false
	}
	if c.ttl > 0 && time.Since(createdAt) > c.ttl {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM responses WHERE prompt_hash = ?`, key)
		return "", false
	}
	return response, true
}

// Put stores a provider response for the prompt, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, systemPrompt, userPrompt, response string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (prompt_hash, response, created_at) VALUES (?, ?, ?)`,
		promptHash(systemPrompt, userPrompt), response, time.Now(),
	)
	return err
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func promptHash(systemPrompt, userPrompt string) string {
	h := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return hex.EncodeToString(h[:])
}
