// Package catalog lists the chat models the service can route to and maps
// each model id to its provider.
package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/andresthedesigner/videodaddychat/internal/common"
)

// Provider names. They double as the keys of per-user API keys.
const (
	ProviderOpenAI     = "openai"
	ProviderMistral    = "mistral"
	ProviderPerplexity = "perplexity"
	ProviderGoogle     = "google"
	ProviderAnthropic  = "anthropic"
	ProviderXAI        = "xai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// KeyedProviders are the providers that take an API key, in display order.
var KeyedProviders = []string{
	ProviderOpenAI,
	ProviderMistral,
	ProviderPerplexity,
	ProviderGoogle,
	ProviderAnthropic,
	ProviderXAI,
	ProviderOpenRouter,
}

func IsKeyedProvider(p string) bool {
	return slices.Contains(KeyedProviders, p)
}

type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	Description   string `json:"description,omitempty"`
	ContextWindow int    `json:"contextWindow,omitempty"`
	Vision        bool   `json:"vision"`
	Accessible    bool   `json:"accessible"`
}

// ProviderFor maps a model id to its provider by naming convention. Unknown
// ids are assumed to be local ollama models.
func ProviderFor(modelID string) string {
	id := strings.ToLower(modelID)
	switch {
	case strings.HasPrefix(id, "openrouter:"):
		return ProviderOpenRouter
	case strings.HasPrefix(id, "gpt-"),
		strings.HasPrefix(id, "o1"),
		strings.HasPrefix(id, "o3"),
		strings.HasPrefix(id, "o4"):
		return ProviderOpenAI
	case strings.HasPrefix(id, "mistral"),
		strings.HasPrefix(id, "pixtral"),
		strings.HasPrefix(id, "codestral"),
		strings.HasPrefix(id, "ministral"):
		return ProviderMistral
	case strings.HasPrefix(id, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(id, "gemini"):
		return ProviderGoogle
	case strings.HasPrefix(id, "grok"):
		return ProviderXAI
	case strings.HasPrefix(id, "sonar"):
		return ProviderPerplexity
	default:
		return ProviderOllama
	}
}

var staticModels = []Model{
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", Provider: ProviderOpenAI, ContextWindow: 1_047_576, Vision: true,
		Description: "Fastest, cheapest GPT-4.1 model."},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Provider: ProviderOpenAI, ContextWindow: 1_047_576, Vision: true},
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: ProviderOpenAI, ContextWindow: 1_047_576, Vision: true},
	{ID: "o4-mini", Name: "o4-mini", Provider: ProviderOpenAI, ContextWindow: 200_000},
	{ID: "mistral-large-latest", Name: "Mistral Large", Provider: ProviderMistral, ContextWindow: 128_000},
	{ID: "pixtral-large-latest", Name: "Pixtral Large", Provider: ProviderMistral, ContextWindow: 128_000, Vision: true},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Provider: ProviderAnthropic, ContextWindow: 200_000, Vision: true},
	{ID: "claude-haiku-4-5-20250929", Name: "Claude Haiku 4.5", Provider: ProviderAnthropic, ContextWindow: 200_000, Vision: true},
	{ID: "claude-opus-4-5-20250929", Name: "Claude Opus 4.5", Provider: ProviderAnthropic, ContextWindow: 200_000, Vision: true},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: ProviderGoogle, ContextWindow: 1_048_576, Vision: true},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: ProviderGoogle, ContextWindow: 1_048_576, Vision: true},
	{ID: "grok-3", Name: "Grok 3", Provider: ProviderXAI, ContextWindow: 131_072},
	{ID: "sonar", Name: "Sonar", Provider: ProviderPerplexity, ContextWindow: 127_000,
		Description: "Search-grounded answers."},
	{ID: "openrouter:deepseek/deepseek-r1:free", Name: "DeepSeek R1 (free)", Provider: ProviderOpenRouter, ContextWindow: 163_840},
	{ID: "openrouter:meta-llama/llama-3.3-8b-instruct:free", Name: "Llama 3.3 8B (free)", Provider: ProviderOpenRouter, ContextWindow: 128_000},
}

// Loader produces the full model list.
type Loader func(ctx context.Context) ([]Model, error)

// StaticLoader returns the built-in model list.
func StaticLoader(context.Context) ([]Model, error) {
	return slices.Clone(staticModels), nil
}

const defaultTTL = 5 * time.Minute

// Catalog caches the loader's result for a TTL. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	models   []Model
	loadedAt time.Time
	ttl      time.Duration
	load     Loader
	now      func() time.Time
}

func New(load Loader) *Catalog {
	if load == nil {
		load = StaticLoader
	}
	return &Catalog{load: load, ttl: defaultTTL, now: time.Now}
}

// All returns every model, reloading when the cache is empty or stale.
func (c *Catalog) All(ctx context.Context) ([]Model, error) {
	c.mu.RLock()
	if c.models != nil && c.now().Sub(c.loadedAt) < c.ttl {
		out := slices.Clone(c.models)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return slices.Clone(c.models), nil
	}
	models, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range models {
		if models[i].Provider == "" {
			models[i].Provider = ProviderFor(models[i].ID)
		}
	}
	c.models = models
	c.loadedAt = c.now()
	return slices.Clone(models), nil
}

// Refresh drops the cache so the next All reloads.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	c.models = nil
	c.mu.Unlock()
}

// Find returns the model with id, if listed.
func (c *Catalog) Find(ctx context.Context, id string) (Model, bool, error) {
	models, err := c.All(ctx)
	if err != nil {
		return Model{}, false, err
	}
	i := slices.IndexFunc(models, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false, nil
	}
	return models[i], true, nil
}

// WithAccess marks each model accessible for the caller. Without a session
// only the free models are usable; a signed-in user may also use models of
// providers they hold a key for and local models.
func WithAccess(models []Model, authenticated bool, userProviders []string) []Model {
	out := slices.Clone(models)
	for i := range out {
		m := &out[i]
		switch {
		case common.IsFreeModel(m.ID):
			m.Accessible = true
		case !authenticated:
			m.Accessible = false
		default:
			m.Accessible = m.Provider == ProviderOllama || slices.Contains(userProviders, m.Provider)
		}
	}
	return out
}
