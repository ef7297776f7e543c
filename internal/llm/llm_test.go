package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "context-management-2025-06-27", r.Header.Get("anthropic-beta"))

		var body anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-haiku-4-5-20250929", body.Model)
		assert.Equal(t, anthropicMaxTokens, body.MaxTokens)
		assert.Equal(t, "be brief\n\n[Context Summary]\nold stuff", body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"claude-haiku-4-5-20250929","content":[{"type":"text","text":"Hi!"}],"usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL)
	resp, err := p.Complete(context.Background(), Request{
		Model:  "claude-haiku-4-5-20250929",
		APIKey: "sk-ant",
		System: "be brief",
		Messages: []Message{
			{Role: "system", Content: "[Context Summary]\nold stuff"},
			{Role: "user", Content: "hello"},
		},
		Headers: map[string]string{"anthropic-beta": "context-management-2025-06-27"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicProvider(srv.URL).Complete(context.Background(), Request{
		Model:    "claude-haiku-4-5-20250929",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid x-api-key", apiErr.Message)
}

func TestOpenAICompatProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or", r.Header.Get("Authorization"))

		var body chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek/deepseek-r1:free", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, Message{Role: "system", Content: "sys"}, body.Messages[0])

		w.Write([]byte(`{"model":"deepseek/deepseek-r1","choices":[{"message":{"content":"pong"}}],"usage":{"prompt_tokens":5,"completion_tokens":1}}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider("openrouter", srv.URL+"/")
	resp, err := p.Complete(context.Background(), Request{
		Model:    "openrouter:deepseek/deepseek-r1:free",
		APIKey:   "sk-or",
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "ping"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text)
	assert.Equal(t, 5, resp.InputTokens)
}

func TestOpenAICompatProvider_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenAICompatProvider("mistral", srv.URL).Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "ping"}},
	})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "mistral", apiErr.Provider)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestEmptyConversation(t *testing.T) {
	_, err := NewOpenAICompatProvider("openai", "http://unused").Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyConversation)
	_, err = NewAnthropicProvider("http://unused").Complete(context.Background(), Request{
		Messages: []Message{{Role: "system", Content: "only system"}},
	})
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestToGeminiHistory(t *testing.T) {
	history, last, err := toGeminiHistory([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "user", last.Role)

	_, _, err = toGeminiHistory([]Message{{Role: "assistant", Content: "b"}})
	assert.Error(t, err)
}

type stubProvider struct {
	text string
	got  Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req Request) (*Response, error) {
	s.got = req
	return &Response{Text: s.text}, nil
}

func TestGenerateTitle(t *testing.T) {
	p := &stubProvider{text: "\"Growing A Gaming Channel.\"\n"}
	title, err := GenerateTitle(context.Background(), p, "gpt-4.1-nano", "k", "how do I grow my gaming channel")
	require.NoError(t, err)
	assert.Equal(t, "Growing A Gaming Channel", title)
	assert.Equal(t, titleSystemInstruction, p.got.System)
	assert.Equal(t, 20, p.got.MaxTokens)

	p.text = "  ..  "
	_, err = GenerateTitle(context.Background(), p, "gpt-4.1-nano", "k", "x")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"openai", "mistral", "xai", "perplexity", "openrouter", "ollama", "anthropic", "google"} {
		p, err := r.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
	_, err := r.Get("nope")
	assert.Error(t, err)
}
