package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperjump/osusume/internal/config"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// ollamaProvider talks to a local Ollama server.
type ollamaProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

func newOllamaProvider(cfg config.AIConfig, client *http.Client) *ollamaProvider {
	return &ollamaProvider{cfg: cfg, client: client}
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  p.cfg.Model,
		"prompt": userPrompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": p.cfg.Temperature,
			"num_predict": p.cfg.MaxTokens,
		},
	}
	if systemPrompt != "" {
		payload["system"] = systemPrompt
	}
	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}

	body, status, err := postJSON(ctx, p.client, baseURL+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusToErr(p.Name(), status, string(body))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}
