package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperjump/osusume/internal/config"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// anthropicProvider talks to the Anthropic messages API.
type anthropicProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

func newAnthropicProvider(cfg config.AIConfig, client *http.Client) *anthropicProvider {
	return &anthropicProvider{cfg: cfg, client: client}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model":       p.cfg.Model,
		"max_tokens":  p.cfg.MaxTokens,
		"temperature": p.cfg.Temperature,
		"messages": []chatMessage{
			{Role: "user", Content: userPrompt},
		},
	}
	if systemPrompt != "" {
		payload["system"] = systemPrompt
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": anthropicAPIVersion,
	}
	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}

	body, status, err := postJSON(ctx, p.client, baseURL+"/v1/messages", headers, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusToErr(p.Name(), status, string(body))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic response has no content")
	}
	return result.Content[0].Text, nil
}
