package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jkindrix/draftwise/internal/config"
)

const geminiProviderName = "gemini"

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewGeminiClient creates a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig, llm *config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c := &GeminiClient{
		client:      cli,
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
	}
	return c, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string { return geminiProviderName }

// Complete sends the user prompt with the system prompt as system instruction.
func (c *GeminiClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(prompt.temperature(c.temperature))),
		MaxOutputTokens: int32(prompt.maxTokens(c.maxTokens)),
	}
	if prompt.System != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	if prompt.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt.User}}}},
		gc,
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(geminiProviderName, apiErr.Code, apiErr.Message)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return "", statusError(geminiProviderName, apiErrPtr.Code, apiErrPtr.Message)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%s: %w", geminiProviderName, ErrEmptyResponse)
	}

	c.logger.Debug("gemini completion", zap.String("operation", prompt.Operation))
	return text.String(), nil
}
