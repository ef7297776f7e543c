package agents

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		request    string
		expected   AgentType
		confidence float64
	}{
		{
			name:       "no keywords",
			request:    "hello there",
			expected:   General,
			confidence: 1,
		},
		{
			name:       "title request",
			request:    "Generate titles for my gaming video",
			expected:   TitleOptimizer,
			confidence: 1.0 / 7,
		},
		{
			name:       "keyword counted once",
			request:    "thumbnail thumbnail thumbnail",
			expected:   ThumbnailAdvisor,
			confidence: 1.0 / 6,
		},
		{
			name:       "case insensitive multi-keyword",
			request:    "Check my ANALYTICS: views, watch time and subscribers",
			expected:   AnalyticsInterpreter,
			confidence: 4.0 / 7,
		},
		{
			name:       "tie goes to earliest priority",
			request:    "improve retention",
			expected:   TranscriptAnalyzer,
			confidence: 1.0 / 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.request)
			assert.Equal(t, tt.expected, got.Type)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
			assert.NotNil(t, got.Parameters)
			assert.Empty(t, got.Parameters)
		})
	}
}

func TestClassifyDetailed_Ambiguous(t *testing.T) {
	got := ClassifyDetailed("a better title and thumbnail")
	assert.Equal(t, TitleOptimizer, got.Type)
	assert.True(t, got.Ambiguous)
	assert.Equal(t, 1, got.Scores[TitleOptimizer])
	assert.Equal(t, 1, got.Scores[ThumbnailAdvisor])

	got = ClassifyDetailed("title seo and a thumbnail")
	assert.Equal(t, TitleOptimizer, got.Type)
	assert.False(t, got.Ambiguous)
}

func TestProcess_General(t *testing.T) {
	o := NewOrchestrator()
	res, err := o.Process(context.Background(), TaskInput{UserRequest: "hi"})
	require.NoError(t, err)
	assert.Equal(t, generalPlaceholder, res.Response)
	assert.Empty(t, res.SubAgentResults)
	assert.Equal(t, TokenUsage{}, res.TotalTokens)
}

func TestProcess_Delegates(t *testing.T) {
	o := NewOrchestrator()
	res, err := o.Process(context.Background(), TaskInput{UserRequest: "Improve my thumbnail design"})
	require.NoError(t, err)
	require.Len(t, res.SubAgentResults, 1)

	sub := res.SubAgentResults[0]
	assert.True(t, sub.Success)
	assert.Equal(t, ThumbnailAdvisor, sub.Agent)
	assert.Equal(t, "{\n  \"message\": \"[Placeholder] Thumbnail Advisor response not yet implemented.\"\n}", res.Response)
}

func TestProcess_MissingSubAgent(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.SubAgents, TitleOptimizer)
	o := NewOrchestrator(WithConfig(cfg))

	_, err := o.Process(context.Background(), TaskInput{UserRequest: "seo title ideas"})
	require.Error(t, err)
	assert.Equal(t, "Sub-agent not configured: title-optimizer", err.Error())
}

func TestProcess_FailedSubAgent(t *testing.T) {
	o := NewOrchestrator(WithRunner(func(context.Context, SubAgentConfig, TaskInput) (any, TokenUsage, error) {
		return nil, TokenUsage{}, errors.New("model overloaded")
	}))
	res, err := o.Process(context.Background(), TaskInput{UserRequest: "summarize this transcript"})
	require.NoError(t, err)
	assert.False(t, res.SubAgentResults[0].Success)
	assert.Equal(t, "I encountered an error while analyzing your request: model overloaded", res.Response)
}

func TestProcessAll_BoundedAndOrdered(t *testing.T) {
	var inFlight, peak atomic.Int32
	runner := func(_ context.Context, cfg SubAgentConfig, _ TaskInput) (any, TokenUsage, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return map[string]string{"agent": cfg.Name}, TokenUsage{Total: 1}, nil
	}
	o := NewOrchestrator(WithRunner(runner), WithMaxConcurrentTasks(2))

	inputs := []TaskInput{
		{UserRequest: "transcript"},
		{UserRequest: "title"},
		{UserRequest: "thumbnail"},
		{UserRequest: "analytics"},
		{UserRequest: "hello"},
	}
	results, err := o.ProcessAll(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	assert.LessOrEqual(t, peak.Load(), int32(2))

	assert.Equal(t, TranscriptAnalyzer, results[0].SubAgentResults[0].Agent)
	assert.Equal(t, AnalyticsInterpreter, results[3].SubAgentResults[0].Agent)
	assert.Equal(t, generalPlaceholder, results[4].Response)
}

func TestUpdateSubAgentAndConfigCopy(t *testing.T) {
	o := NewOrchestrator()
	temp := 0.9
	assert.True(t, o.UpdateSubAgent(TitleOptimizer, SubAgentPatch{Temperature: &temp, Tools: []string{"search", "trends"}}))
	assert.False(t, o.UpdateSubAgent(General, SubAgentPatch{Temperature: &temp}))

	cfg := o.Config()
	sa := cfg.SubAgents[TitleOptimizer]
	assert.Equal(t, 0.9, sa.Temperature)
	assert.Equal(t, "Title/SEO Optimizer", sa.Name)
	assert.Equal(t, []string{"search", "trends"}, sa.Tools)

	cfg.SubAgents[TitleOptimizer] = SubAgentConfig{}
	assert.Equal(t, "Title/SEO Optimizer", o.Config().SubAgents[TitleOptimizer].Name)
}
