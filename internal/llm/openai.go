package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/ragerr"
)

// OpenAIConfig configures the chat-completion generator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGenerator answers questions with an OpenAI chat model, grounded in
// the retrieved passages.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration

	mu     sync.RWMutex
	closed bool
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a chat generator. APIKey is required.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.CodeConfigInvalid,
			"OpenAI API key is required for answer generation", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}, nil
}

// Generate answers the question from the passages. An empty question is
// rejected; empty passages are allowed and produce an "I don't know" style
// answer driven by the system prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, passages []chunk.Chunk) (string, error) {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return "", ragerr.New(ragerr.CodeInternal, "generator is closed", nil)
	}
	g.mu.RUnlock()

	if strings.TrimSpace(question) == "" {
		return "", ragerr.EmptyInput("question must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(question, passages)},
		},
	})
	if err != nil {
		return "", ragerr.New(ragerr.CodeGenerationFailed,
			"chat completion request failed", err).
			WithDetail("model", g.model)
	}
	if len(resp.Choices) == 0 {
		return "", ragerr.New(ragerr.CodeGenerationFailed,
			"chat completion returned no choices", nil).
			WithDetail("model", g.model)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ragerr.New(ragerr.CodeGenerationFailed,
			"chat completion returned an empty answer", nil).
			WithDetail("model", g.model)
	}
	return answer, nil
}

// ModelName reports the configured chat model.
func (g *OpenAIGenerator) ModelName() string { return "openai/" + g.model }

// Close marks the generator unusable.
func (g *OpenAIGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}
