package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/common"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

// anthropicClient implements Completer for the Anthropic messages API.
type anthropicClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config) *anthropicClient {
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &anthropicClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *anthropicClient) Provider() string { return "anthropic" }

func (c *anthropicClient) Model() string { return c.model }

// Complete sends prompt with the extraction system prompt and joins the
// returned text blocks.
func (c *anthropicClient) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, err := postJSON(ctx, c.httpClient, "Anthropic", c.baseURL+"/v1/messages",
		map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": "2023-06-01",
		}, requestBody)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", common.ErrEmptyResponse
	}

	return sb.String(), nil
}

// anthropicResponse is the subset of the messages response we read.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
