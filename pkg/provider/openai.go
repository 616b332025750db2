package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/health-intelligence-engine/internal/domain"
)

// openAIClient talks to the chat completions API.
type openAIClient struct {
	baseURL     string
	apiKey      string
	temperature float64
	topP        float64
	maxTokens   int
	httpClient  *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	TopP                *float64        `json:"top_p,omitempty"`
	MaxTokens           int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func newOpenAIClient(cfg domain.ProviderConfig, timeout time.Duration) *openAIClient {
	return &openAIClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newHTTPClient(timeout),
	}
}

// fixedSampling reports whether the model only accepts its default sampling
// and the max_completion_tokens limit field.
func fixedSampling(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.HasPrefix(id, "gpt-5") ||
		strings.HasPrefix(id, "o1") ||
		strings.HasPrefix(id, "o3") ||
		strings.HasPrefix(id, "o4")
}

func (c *openAIClient) buildRequest(modelID, prompt string) openAIRequest {
	req := openAIRequest{
		Model:    modelID,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}
	if fixedSampling(modelID) {
		req.MaxCompletionTokens = c.maxTokens
		return req
	}
	temperature, topP := c.temperature, c.topP
	req.Temperature = &temperature
	req.TopP = &topP
	req.MaxTokens = c.maxTokens
	return req
}

func (c *openAIClient) generate(ctx context.Context, modelID, prompt string) (string, error) {
	var resp openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, c.buildRequest(modelID, prompt), &resp); err != nil {
		return "", err
	}

	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errEmptyResponse
}
