package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hyperjump/osusume/internal/config"
)

// customProvider posts to an arbitrary JSON API at base_url. The payload is a
// fixed template; the endpoint is expected to reply with a "response" field,
// falling back to the raw body when it does not.
type customProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

func newCustomProvider(cfg config.AIConfig, client *http.Client) *customProvider {
	return &customProvider{cfg: cfg, client: client}
}

func (p *customProvider) Name() string { return "custom" }

func (p *customProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"input":       userPrompt,
		"system":      systemPrompt,
		"temperature": p.cfg.Temperature,
		"max_tokens":  p.cfg.MaxTokens,
	}
	var headers map[string]string
	if p.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	}

	body, status, err := postJSON(ctx, p.client, p.cfg.BaseURL, headers, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusToErr(p.Name(), status, string(body))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Response == "" {
		return string(body), nil
	}
	return result.Response, nil
}
