// Package agents routes creator requests to specialised sub-agents. The
// classifier is keyword based; sub-agent execution is a placeholder.
package agents

import "strings"

// AgentType names a sub-agent, or General for requests no sub-agent claims.
type AgentType string

const (
	TranscriptAnalyzer   AgentType = "transcript-analyzer"
	TitleOptimizer       AgentType = "title-optimizer"
	ThumbnailAdvisor     AgentType = "thumbnail-advisor"
	AnalyticsInterpreter AgentType = "analytics-interpreter"

	General AgentType = "general"
)

// ClassificationPriority breaks score ties: the earliest tied type wins.
var ClassificationPriority = []AgentType{
	TranscriptAnalyzer,
	TitleOptimizer,
	ThumbnailAdvisor,
	AnalyticsInterpreter,
}

var taskKeywords = map[AgentType][]string{
	TranscriptAnalyzer: {
		"transcript", "video content", "summarize", "hook", "retention", "script", "clip", "short",
	},
	TitleOptimizer: {
		"title", "seo", "tag", "keyword", "description", "clickbait", "a/b test",
	},
	ThumbnailAdvisor: {
		"thumbnail", "image", "visual", "design", "ctr", "click-through",
	},
	AnalyticsInterpreter: {
		"analytics", "metrics", "views", "watch time", "retention", "subscribers", "performance",
	},
}

// Keywords returns the keyword list for t, or nil for General.
func Keywords(t AgentType) []string {
	return append([]string(nil), taskKeywords[t]...)
}

type Classification struct {
	Type       AgentType      `json:"type"`
	Confidence float64        `json:"confidence"`
	Parameters map[string]any `json:"parameters"`
}

// DetailedClassification adds the per-type scores and whether the winner was
// picked by ClassificationPriority.
type DetailedClassification struct {
	Classification
	Scores    map[AgentType]int `json:"scores"`
	Ambiguous bool              `json:"ambiguous"`
}

// Classify scores the request against every keyword list. A keyword counts
// once no matter how often it occurs. Zero matches classify as General with
// confidence 1.
func Classify(request string) Classification {
	return ClassifyDetailed(request).Classification
}

func ClassifyDetailed(request string) DetailedClassification {
	lower := strings.ToLower(request)

	scores := make(map[AgentType]int, len(ClassificationPriority))
	for _, t := range ClassificationPriority {
		for _, kw := range taskKeywords[t] {
			if strings.Contains(lower, kw) {
				scores[t]++
			}
		}
	}

	best, bestScore, tied := General, 0, 0
	for _, t := range ClassificationPriority {
		switch s := scores[t]; {
		case s > bestScore:
			best, bestScore, tied = t, s, 1
		case s == bestScore && s > 0:
			tied++
		}
	}

	if bestScore == 0 {
		return DetailedClassification{
			Classification: Classification{Type: General, Confidence: 1, Parameters: map[string]any{}},
			Scores:         scores,
		}
	}

	confidence := float64(bestScore) / float64(len(taskKeywords[best]))
	if confidence > 1 {
		confidence = 1
	}
	return DetailedClassification{
		Classification: Classification{Type: best, Confidence: confidence, Parameters: map[string]any{}},
		Scores:         scores,
		Ambiguous:      tied > 1,
	}
}
