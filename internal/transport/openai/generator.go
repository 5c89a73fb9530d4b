package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/metrics"
)

// DefaultMaxCompletionTokens bounds the answer length.
const DefaultMaxCompletionTokens = 1000

const promptTemplate = `You are a research assistant with expertise in academic literature.

Based on the following search results from the research index, provide a comprehensive and accurate answer to the user's query.

IMPORTANT INSTRUCTIONS:
1. Base your answer primarily on the provided context
2. Cite specific papers and faculty when relevant using [Author et al., Year] format
3. If the context doesn't contain enough information, acknowledge this limitation
4. Be concise but thorough (aim for 200-400 words)
5. Use academic language appropriate for researchers

SEARCH CONTEXT:
%s

USER QUERY: %s

RESPONSE:`

// Generator is an answer generation provider using OpenAI-compatible
// chat completions.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	provider  string
	logger    *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Provider  string
	Logger    *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxCompletionTokens
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		provider:  cfg.Provider,
		logger:    logger,
	}
}

// Generate implements domain.Generator via chat completions.
func (g *Generator) Generate(ctx context.Context, question, contextBlock string) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(promptTemplate, contextBlock, question),
			},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, mapGenerationError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "input").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "output").Add(float64(resp.Usage.CompletionTokens))

	return domain.GenerationResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// mapGenerationError classifies completion API errors. Credential and
// model errors get their own sentinels so callers can degrade with a
// specific fallback message.
func mapGenerationError(err error) error {
	code := apiStatusCode(err)
	msg := apiErrorMessage(err)

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("generation API error %d: %s: %w: %w",
			code, msg, domain.ErrGenerationFailed, domain.ErrAccessDenied)
	case http.StatusNotFound:
		return fmt.Errorf("generation API error %d: %s: %w: %w",
			code, msg, domain.ErrGenerationFailed, domain.ErrModelNotAvailable)
	case http.StatusTooManyRequests:
		return fmt.Errorf("generation API error %d: %s: %w: %w",
			code, msg, domain.ErrGenerationFailed, domain.ErrRateLimited)
	}
	if code > 0 {
		return fmt.Errorf("generation API error %d: %s: %w", code, msg, domain.ErrGenerationFailed)
	}
	return fmt.Errorf("generation request failed: %w", domain.ErrGenerationFailed)
}

func apiErrorMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return detail
		}
		return string(reqErr.Body)
	}
	return err.Error()
}
