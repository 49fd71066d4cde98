package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperjump/osusume/internal/config"
)

const openAIDefaultBaseURL = "https://api.openai.com"

// openAIProvider talks to the OpenAI chat completions API (or any
// API-compatible server via base_url).
type openAIProvider struct {
	cfg    config.AIConfig
	client *http.Client
}

func newOpenAIProvider(cfg config.AIConfig, client *http.Client) *openAIProvider {
	return &openAIProvider{cfg: cfg, client: client}
}

func (p *openAIProvider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *openAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	payload := map[string]interface{}{
		"model":       p.cfg.Model,
		"messages":    messages,
		"temperature": p.cfg.Temperature,
		"max_tokens":  p.cfg.MaxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}
	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	body, status, err := postJSON(ctx, p.client, baseURL+"/v1/chat/completions", headers, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusToErr(p.Name(), status, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return result.Choices[0].Message.Content, nil
}
