// Package textgen adapts the OpenAI chat completion API to domain.TextGenerator.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/domain"
)

const (
	DefaultModel       = openai.GPT4oMini
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// Config configures the OpenAI generator.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond float64
}

// OpenAIGenerator calls the chat completion endpoint, throttled by a token bucket.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewOpenAIGenerator returns a generator. With an empty API key every call
// reports domain.ErrGeneratorUnavailable.
func NewOpenAIGenerator(cfg Config, logger *slog.Logger, m *metrics.Metrics) *OpenAIGenerator {
	g := &OpenAIGenerator{
		model:   cfg.Model,
		logger:  logger.With("component", "textgen"),
		metrics: m,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(clientCfg)
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return g
}

// Generate returns the first completion choice for the given prompts.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	if g.client == nil {
		g.count("disabled")
		return "", domain.ErrGeneratorUnavailable
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.count("throttled")
			return "", errors.Join(domain.ErrGeneratorUnavailable, err)
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		g.count("error")
		g.logger.Warn("chat completion failed", "model", g.model, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.count("empty")
		return "", fmt.Errorf("%w: empty completion", domain.ErrGeneratorUnavailable)
	}
	g.count("ok")
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) count(status string) {
	if g.metrics != nil {
		g.metrics.TextGenRequests.WithLabelValues(status).Inc()
	}
}
