// Package llm talks to the chat-completion APIs of the supported model
// providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model       string
	APIKey      string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float32

	// Headers are extra HTTP headers, such as anthropic-beta.
	Headers map[string]string
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider completes a conversation with one vendor's API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

var ErrEmptyConversation = errors.New("conversation has no messages")

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Message)
}

// splitSystem moves system-role messages into the system prompt, for APIs
// that take it out of band.
func splitSystem(system string, msgs []Message) (string, []Message) {
	parts := []string{}
	if system != "" {
		parts = append(parts, system)
	}
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

const defaultHTTPTimeout = 90 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// Registry maps provider names to providers.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q", name)
	}
	return p, nil
}

// DefaultRegistry registers every supported provider with its public
// endpoint.
func DefaultRegistry() *Registry {
	r := NewRegistry(
		NewAnthropicProvider(""),
		NewGeminiProvider(),
	)
	for name, base := range OpenAICompatEndpoints {
		r.Register(NewOpenAICompatProvider(name, base))
	}
	return r
}
