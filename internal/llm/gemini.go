package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiProviderID = "google"

// GeminiProvider calls Gemini through the genai SDK. A client is built per
// request because the API key belongs to the caller.
type GeminiProvider struct {
	newClient func(ctx context.Context, apiKey string) (*genai.Client, error)
}

func NewGeminiProvider() *GeminiProvider {
	return &GeminiProvider{
		newClient: func(ctx context.Context, apiKey string) (*genai.Client, error) {
			return genai.NewClient(ctx, option.WithAPIKey(apiKey))
		},
	}
}

func (p *GeminiProvider) Name() string { return geminiProviderID }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	system, msgs := splitSystem(req.System, req.Messages)
	history, last, err := toGeminiHistory(msgs)
	if err != nil {
		return nil, err
	}

	client, err := p.newClient(ctx, req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		model.GenerationConfig.MaxOutputTokens = &maxTokens
	}
	if req.Temperature != nil {
		model.GenerationConfig.Temperature = req.Temperature
	}

	chatSession := model.StartChat()
	chatSession.History = history

	resp, err := chatSession.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	if responseText.Len() == 0 {
		return nil, fmt.Errorf("gemini returned no text parts")
	}

	out := &Response{Text: responseText.String(), Model: req.Model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// toGeminiHistory splits msgs into the prior turns and the user turn to send.
// Gemini calls the assistant role "model".
func toGeminiHistory(msgs []Message) ([]*genai.Content, *genai.Content, error) {
	if len(msgs) == 0 {
		return nil, nil, ErrEmptyConversation
	}
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	last := contents[len(contents)-1]
	if last.Role != "user" {
		return nil, nil, fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}
	return contents[:len(contents)-1], last, nil
}
