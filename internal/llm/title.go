package llm

import (
	"context"
	"fmt"
	"strings"
)

const titleSystemInstruction = "You are a helpful assistant that generates concise titles for chat conversations. " +
	"The title should be 3-5 words maximum. Just return the title itself, nothing else."

const maxTitleRunes = 100

// GenerateTitle asks the provider for a short title for a conversation that
// starts with content.
func GenerateTitle(ctx context.Context, p Provider, model, apiKey, content string) (string, error) {
	temp := float32(0.3)
	prompt := fmt.Sprintf("Generate a very concise title (3-5 words maximum) for a conversation that starts with or is about: \"%s\".", content)

	resp, err := p.Complete(ctx, Request{
		Model:       model,
		APIKey:      apiKey,
		System:      titleSystemInstruction,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   20,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("title generation request failed: %w", err)
	}

	title := CleanTitle(resp.Text)
	if title == "" {
		return "", fmt.Errorf("LLM generated an empty title string")
	}
	return title, nil
}

// CleanTitle strips quotes and trailing punctuation a model tends to add.
func CleanTitle(s string) string {
	s = strings.Trim(s, "\"'\n\r\t .")
	if r := []rune(s); len(r) > maxTitleRunes {
		s = string(r[:maxTitleRunes])
	}
	return s
}
