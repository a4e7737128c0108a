package llm

import (
	"strings"
	"sync"
)

// Models hands out one Completer per model name for a single provider
// configuration. The zero model name means the configured default.
type Models struct {
	byName map[string]Completer
	base   Config
	mu     sync.Mutex
}

// NewModels validates base and prepares its default completer.
func NewModels(base Config) (*Models, error) {
	def, err := NewCompleter(base)
	if err != nil {
		return nil, err
	}
	return &Models{
		base:   base,
		byName: map[string]Completer{"": def, def.Model(): def},
	}, nil
}

// For returns the completer for model, creating it on first use.
func (m *Models) For(model string) (Completer, error) {
	model = strings.TrimSpace(model)

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.byName[model]; ok {
		return c, nil
	}

	cfg := m.base
	cfg.Model = model
	c, err := NewCompleter(cfg)
	if err != nil {
		return nil, err
	}
	m.byName[model] = c
	return c, nil
}
