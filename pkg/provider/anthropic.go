package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/health-intelligence-engine/internal/domain"
)

const anthropicVersion = "2023-06-01"

// anthropicClient talks to the messages API.
type anthropicClient struct {
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func newAnthropicClient(cfg domain.ProviderConfig, timeout time.Duration) *anthropicClient {
	return &anthropicClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newHTTPClient(timeout),
	}
}

func (c *anthropicClient) generate(ctx context.Context, modelID, prompt string) (string, error) {
	req := anthropicRequest{
		Model:       modelID,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}

	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", errEmptyResponse
}
