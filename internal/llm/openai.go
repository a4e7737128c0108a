package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// openAIClient implements Completer for the OpenAI chat completions API.
type openAIClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config) *openAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &openAIClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *openAIClient) Provider() string { return "openai" }

func (c *openAIClient) Model() string { return c.model }

// Complete sends prompt as a single user message.
func (c *openAIClient) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	body, err := postJSON(ctx, c.httpClient, "OpenAI", c.baseURL+"/v1/chat/completions",
		map[string]string{"Authorization": "Bearer " + apiKey}, requestBody)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", common.ErrEmptyResponse
	}

	return response.Choices[0].Message.Content, nil
}

// openAIResponse is the subset of the chat completion response we read.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}
