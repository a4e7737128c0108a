package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ingest/internal/common"
)

// NewCompleter creates a Completer for cfg.Provider.
func NewCompleter(cfg Config) (Completer, error) {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return newGeminiClient(cfg), nil
	case "openai":
		return newOpenAIClient(cfg), nil
	case "anthropic":
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	}
}
