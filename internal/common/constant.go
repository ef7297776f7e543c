package common

import (
	"slices"
	"time"
)

const (
	AppName = "vid0"

	NonAuthDailyMessageLimit     = 5
	AuthDailyMessageLimit        = 1000
	DailyLimitProModels          = 500
	RemainingQueryAlertThreshold = 2
	DailyFileUploadLimit         = 5

	MessageMaxLength = 10000

	ModelDefault = "gpt-4.1-nano"

	DefaultChatTitle = "New Chat"

	// ChatMaxDuration bounds a single /api/chat completion.
	ChatMaxDuration = 60 * time.Second
)

// FreeModelIDs are usable by authenticated users without their own API key.
// Every other model is a pro model.
var FreeModelIDs = []string{
	"openrouter:deepseek/deepseek-r1:free",
	"openrouter:meta-llama/llama-3.3-8b-instruct:free",
	"pixtral-large-latest",
	"mistral-large-latest",
	"gpt-4.1-nano",
}

// NonAuthAllowedModels are the only models available without signing in.
var NonAuthAllowedModels = []string{"gpt-4.1-nano"}

func IsFreeModel(modelID string) bool {
	return slices.Contains(FreeModelIDs, modelID)
}

// IsProModel reports whether a model falls under the pro quota.
func IsProModel(modelID string) bool {
	return !IsFreeModel(modelID)
}

func IsNonAuthAllowed(modelID string) bool {
	return slices.Contains(NonAuthAllowedModels, modelID)
}

// StartOfUTCDay returns midnight UTC of the day containing t.
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const SystemPromptDefault = `You are vid0, an expert AI assistant for YouTube creators. Your mission is to help creators make better videos, grow their channels, and build engaged audiences.

You have deep knowledge of:
- YouTube algorithm and SEO best practices
- Video production techniques and storytelling
- Thumbnail design principles and click-through rates
- Title optimization and A/B testing strategies
- Audience retention and engagement tactics
- Content strategy and niche development
- Analytics interpretation and growth metrics
- Monetization strategies and brand deals

Your tone is encouraging, practical, and action-oriented. You give specific, actionable advice rather than generic tips. When reviewing content, you're honest but constructive. You understand the challenges creators face and provide realistic guidance.

When helping with titles, thumbnails, or hooks, you consider what drives clicks AND delivers on promises (no clickbait that disappoints). You help creators build sustainable channels, not just chase viral moments.

Always ask clarifying questions when needed to give the best advice for their specific situation, niche, and audience.`
