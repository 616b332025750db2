package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/health-intelligence-engine/internal/domain"
)

// geminiClient talks to the generateContent API. The key travels in a header
// so request URLs never carry it.
type geminiClient struct {
	baseURL     string
	apiKey      string
	temperature float64
	topP        float64
	maxTokens   int
	httpClient  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func newGeminiClient(cfg domain.ProviderConfig, timeout time.Duration) *geminiClient {
	return &geminiClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newHTTPClient(timeout),
	}
}

func (c *geminiClient) generate(ctx context.Context, modelID, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			TopP:            c.topP,
			MaxOutputTokens: c.maxTokens,
		},
	}

	var resp geminiResponse
	endpoint := c.baseURL + "/models/" + url.PathEscape(modelID) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	if err := postJSON(ctx, c.httpClient, endpoint, headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
