package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/common"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiClient implements Completer for the Gemini generateContent API.
type geminiClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newGeminiClient(cfg Config) *geminiClient {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &geminiClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *geminiClient) Provider() string { return "gemini" }

func (c *geminiClient) Model() string { return c.model }

// Complete asks for a JSON response; Gemini has no separate system message
// on this endpoint so the instructions are prepended to the prompt.
func (c *geminiClient) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	requestBody := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": systemPrompt + "\n\n" + prompt}},
			},
		},
		"generationConfig": map[string]any{
			"temperature":      c.temperature,
			"maxOutputTokens":  c.maxTokens,
			"responseMimeType": "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	body, err := postJSON(ctx, c.httpClient, "Gemini", endpoint,
		map[string]string{"x-goog-api-key": apiKey}, requestBody)
	if err != nil {
		return "", err
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Candidates) == 0 {
		return "", common.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", common.ErrEmptyResponse
	}

	return sb.String(), nil
}

// geminiResponse is the subset of the generateContent response we read.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}
