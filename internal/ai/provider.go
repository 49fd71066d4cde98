// Package ai provides the optional AI augmentation hook: pluggable text
// generation providers, a persistent response cache, and a reranking augmenter
// that degrades to the base recommendation order on any provider failure.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hyperjump/osusume/internal/config"
)

// ErrRateLimited is returned when the provider reports rate limiting (429).
var ErrRateLimited = errors.New("provider rate limited")

// ErrQuotaExceeded is returned when the provider reports quota exhaustion (402).
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// Provider generates text from a prompt. Implementations must honor ctx
// cancellation; the augmenter bounds every call with a timeout.
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProvider creates the provider selected by cfg.Provider. Selection is
// configuration-time only; the augmenter never switches providers per request.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	client := newHTTPClient(cfg)
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg, client), nil
	case "anthropic":
		return newAnthropicProvider(cfg, client), nil
	case "ollama":
		return newOllamaProvider(cfg, client), nil
	case "custom":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("custom provider requires base_url")
		}
		return newCustomProvider(cfg, client), nil
	case "script":
		// Fixed-script provider with no script: every call falls back to the
		// base order. Useful for wiring tests and dry runs.
		return NewScriptProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// newHTTPClient builds the shared retrying HTTP client for hosted providers.
func newHTTPClient(cfg config.AIConfig) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	return rc.StandardClient()
}

// statusToErr maps provider HTTP status codes to the error taxonomy.
func statusToErr(name string, status int, body string) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, name)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, name)
	default:
		return fmt.Errorf("%s API error: status %d: %s", name, status, body)
	}
}
