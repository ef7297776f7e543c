package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	ModelOpus   = "claude-opus-4-5-20250929"
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelHaiku  = "claude-haiku-4-5-20250929"
)

const generalPlaceholder = "[Placeholder] General task handling not yet implemented. " +
	"This would use the main Claude Opus agent for conversation."

type SubAgentConfig struct {
	Type         AgentType `json:"type"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt"`
	MaxTokens    int       `json:"maxTokens"`
	Temperature  float64   `json:"temperature"`
	Tools        []string  `json:"tools"`
}

// SubAgentPatch overrides the non-nil fields of a SubAgentConfig.
type SubAgentPatch struct {
	Name         *string
	Model        *string
	SystemPrompt *string
	MaxTokens    *int
	Temperature  *float64
	Tools        []string
}

type ContextManagement struct {
	CompactionThreshold    int `json:"compactionThreshold"`
	PreserveRecentMessages int `json:"preserveRecentMessages"`
}

type Config struct {
	Model                    string                       `json:"model"`
	SubAgents                map[AgentType]SubAgentConfig `json:"subAgents"`
	EnableParallelProcessing bool                         `json:"enableParallelProcessing"`
	MaxConcurrentTasks       int                          `json:"maxConcurrentTasks"`
	ContextManagement        ContextManagement            `json:"contextManagement"`
}

func DefaultSubAgentConfigs() map[AgentType]SubAgentConfig {
	return map[AgentType]SubAgentConfig{
		TranscriptAnalyzer: {
			Type:  TranscriptAnalyzer,
			Name:  "Transcript Analyzer",
			Model: ModelHaiku,
			SystemPrompt: `You are a YouTube transcript analyzer. Your job is to:
- Summarize video content concisely
- Extract key points and hooks
- Identify strong and weak retention segments
- Find quotable moments for clips/shorts
- Suggest script improvements

Focus on actionable insights that help creators improve their content.`,
			MaxTokens:   4096,
			Temperature: 0.3,
			Tools:       []string{"search", "read"},
		},
		TitleOptimizer: {
			Type:  TitleOptimizer,
			Name:  "Title/SEO Optimizer",
			Model: ModelSonnet,
			SystemPrompt: `You are a YouTube title and SEO optimizer. Your job is to:
- Generate click-worthy titles that deliver on promises
- Create SEO-optimized tags and descriptions
- Suggest A/B test variants
- Analyze keyword opportunities
- Balance clickability with accuracy (no misleading clickbait)

Consider the creator's niche, target audience, and current trends.`,
			MaxTokens:   2048,
			Temperature: 0.7,
			Tools:       []string{"search"},
		},
		ThumbnailAdvisor: {
			Type:  ThumbnailAdvisor,
			Name:  "Thumbnail Advisor",
			Model: ModelSonnet,
			SystemPrompt: `You are a YouTube thumbnail design advisor. Your job is to:
- Analyze thumbnail visual hierarchy
- Evaluate text readability and placement
- Assess color contrast and emotional impact
- Suggest specific improvements
- Compare against successful thumbnails in the niche

Focus on CTR optimization while maintaining brand consistency.`,
			MaxTokens:   2048,
			Temperature: 0.5,
			Tools:       []string{"vision"},
		},
		AnalyticsInterpreter: {
			Type:  AnalyticsInterpreter,
			Name:  "Analytics Interpreter",
			Model: ModelSonnet,
			SystemPrompt: `You are a YouTube analytics interpreter. Your job is to:
- Explain metrics in plain language
- Identify trends and patterns
- Benchmark against niche averages
- Prioritize improvement areas
- Provide actionable recommendations

Focus on insights that lead to tangible growth, not vanity metrics.`,
			MaxTokens:   3072,
			Temperature: 0.4,
			Tools:       []string{"calculate"},
		},
	}
}

func DefaultConfig() Config {
	return Config{
		Model:                    ModelOpus,
		SubAgents:                DefaultSubAgentConfigs(),
		EnableParallelProcessing: true,
		MaxConcurrentTasks:       3,
		ContextManagement: ContextManagement{
			CompactionThreshold:    100_000,
			PreserveRecentMessages: 10,
		},
	}
}

type Attachment struct {
	Type     string         `json:"type"` // transcript, image, analytics or text
	Content  string         `json:"content"`
	MimeType string         `json:"mimeType,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type TaskInput struct {
	UserRequest         string       `json:"userRequest"`
	ConversationContext string       `json:"conversationContext,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
}

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

type SubAgentResponse struct {
	Success        bool       `json:"success"`
	Agent          AgentType  `json:"agent"`
	ProcessingTime int64      `json:"processingTime"`
	TokenUsage     TokenUsage `json:"tokenUsage"`
	Data           any        `json:"data"`
	Error          string     `json:"error,omitempty"`
}

type Result struct {
	Response        string             `json:"response"`
	SubAgentResults []SubAgentResponse `json:"subAgentResults"`
	TotalTime       int64              `json:"totalTime"`
	TotalTokens     TokenUsage         `json:"totalTokens"`
}

// Runner executes one sub-agent task. The default runner returns a
// placeholder without calling any model.
type Runner func(ctx context.Context, cfg SubAgentConfig, input TaskInput) (any, TokenUsage, error)

func placeholderRunner(_ context.Context, cfg SubAgentConfig, _ TaskInput) (any, TokenUsage, error) {
	return map[string]string{
		"message": fmt.Sprintf("[Placeholder] %s response not yet implemented.", cfg.Name),
	}, TokenUsage{}, nil
}

type Option func(*Orchestrator)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

func WithMaxConcurrentTasks(n int) Option {
	return func(o *Orchestrator) { o.cfg.MaxConcurrentTasks = n }
}

func WithParallelProcessing(enabled bool) Option {
	return func(o *Orchestrator) { o.cfg.EnableParallelProcessing = enabled }
}

func WithRunner(r Runner) Option {
	return func(o *Orchestrator) { o.run = r }
}

type Orchestrator struct {
	mu  sync.RWMutex
	cfg Config
	run Runner
	now func() time.Time
}

func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: DefaultConfig(),
		run: placeholderRunner,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.SubAgents == nil {
		o.cfg.SubAgents = map[AgentType]SubAgentConfig{}
	}
	return o
}

// Process classifies the request and either answers it as a general task or
// delegates it to the matching sub-agent.
func (o *Orchestrator) Process(ctx context.Context, input TaskInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := o.now()

	classification := Classify(input.UserRequest)
	if classification.Type == General {
		return &Result{
			Response:        generalPlaceholder,
			SubAgentResults: []SubAgentResponse{},
			TotalTime:       o.now().Sub(start).Milliseconds(),
		}, nil
	}

	sub, err := o.delegate(ctx, classification.Type, input)
	if err != nil {
		return nil, err
	}
	return &Result{
		Response:        synthesize(sub),
		SubAgentResults: []SubAgentResponse{sub},
		TotalTime:       o.now().Sub(start).Milliseconds(),
		TotalTokens:     sub.TokenUsage,
	}, nil
}

// ProcessAll runs Process for every input, at most MaxConcurrentTasks at a
// time, or one by one when parallel processing is off. Results keep the
// order of inputs.
func (o *Orchestrator) ProcessAll(ctx context.Context, inputs []TaskInput) ([]*Result, error) {
	o.mu.RLock()
	limit := o.cfg.MaxConcurrentTasks
	if !o.cfg.EnableParallelProcessing || limit < 1 {
		limit = 1
	}
	o.mu.RUnlock()

	results := make([]*Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			res, err := o.Process(ctx, in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) delegate(ctx context.Context, t AgentType, input TaskInput) (SubAgentResponse, error) {
	o.mu.RLock()
	cfg, ok := o.cfg.SubAgents[t]
	o.mu.RUnlock()
	if !ok {
		return SubAgentResponse{}, fmt.Errorf("Sub-agent not configured: %s", t)
	}

	start := o.now()
	data, usage, err := o.run(ctx, cfg, input)
	resp := SubAgentResponse{
		Success:        err == nil,
		Agent:          t,
		ProcessingTime: o.now().Sub(start).Milliseconds(),
		TokenUsage:     usage,
		Data:           data,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

func synthesize(r SubAgentResponse) string {
	if !r.Success {
		return "I encountered an error while analyzing your request: " + r.Error
	}
	b, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", r.Data)
	}
	return string(b)
}

// Config returns a copy of the current configuration.
func (o *Orchestrator) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	cfg := o.cfg
	cfg.SubAgents = maps.Clone(o.cfg.SubAgents)
	for t, sa := range cfg.SubAgents {
		sa.Tools = slices.Clone(sa.Tools)
		cfg.SubAgents[t] = sa
	}
	return cfg
}

// UpdateSubAgent merges patch into the configuration of t. It reports false
// when t is not configured.
func (o *Orchestrator) UpdateSubAgent(t AgentType, patch SubAgentPatch) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.cfg.SubAgents[t]
	if !ok {
		return false
	}
	if patch.Name != nil {
		cur.Name = *patch.Name
	}
	if patch.Model != nil {
		cur.Model = *patch.Model
	}
	if patch.SystemPrompt != nil {
		cur.SystemPrompt = *patch.SystemPrompt
	}
	if patch.MaxTokens != nil {
		cur.MaxTokens = *patch.MaxTokens
	}
	if patch.Temperature != nil {
		cur.Temperature = *patch.Temperature
	}
	if patch.Tools != nil {
		cur.Tools = slices.Clone(patch.Tools)
	}
	o.cfg.SubAgents[t] = cur
	return true
}
