package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
)

const openAIProviderName = "openai"

// OpenAIClient calls chat completions on OpenAI or any compatible gateway.
type OpenAIClient struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewOpenAIClient creates a client from configuration. SDK retries are off;
// the caller owns failure handling.
func NewOpenAIClient(cfg *config.OpenAIConfig, llm *config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := &OpenAIClient{
		model:       cfg.Model,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      logger,
	}
	if llm != nil {
		if llm.MaxTokens > 0 {
			c.maxTokens = llm.MaxTokens
		}
		if llm.Temperature > 0 {
			c.temperature = llm.Temperature
		}
		if llm.Timeout > 0 {
			opts = append(opts, option.WithRequestTimeout(llm.Timeout))
		}
	}
	c.client = openai.NewClient(opts...)
	return c
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return openAIProviderName }

// Complete sends a system and user message pair.
func (c *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		MaxTokens:   openai.Int(int64(prompt.maxTokens(c.maxTokens))),
		Temperature: openai.Float(prompt.temperature(c.temperature)),
	}
	if prompt.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", statusError(openAIProviderName, apiErr.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", openAIProviderName, ErrEmptyResponse)
	}

	c.logger.Debug("openai completion",
		zap.String("operation", prompt.Operation),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)

	return resp.Choices[0].Message.Content, nil
}
