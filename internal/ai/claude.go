package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/middleware"
)

const (
	anthropicVersion       = "2023-06-01"
	defaultAnthropicURL    = "https://api.anthropic.com/v1"
	defaultMaxTokens       = 2048
	defaultTemperature     = 0.7
	maxErrorBodyBytes      = 4 << 10
	claudeProviderName     = "anthropic"
	defaultProviderTimeout = 60 * time.Second
)

// ClaudeClient handles communication with the Anthropic Messages API.
type ClaudeClient struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClaudeClient creates a new Claude client.
func NewClaudeClient(cfg *config.AnthropicConfig, llm *config.LLMConfig, logger *zap.Logger) *ClaudeClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	c := &ClaudeClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		httpClient:  &http.Client{Timeout: defaultProviderTimeout},
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
			c.httpClient.Timeout = llm.Timeout
		}
	}
	return c
}

// ClaudeRequest represents a request to the Claude API.
type ClaudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []ClaudeMessage `json:"messages"`
}

// ClaudeMessage represents a message in a Claude conversation.
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse represents a response from the Claude API.
type ClaudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ClaudeError represents an error response from the Claude API.
type ClaudeError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns the provider name.
func (c *ClaudeClient) Name() string { return claudeProviderName }

// Complete sends prompt as a single user turn. Claude has no JSON mode, so
// JSON prompts rely on the instructions and ExtractJSON.
func (c *ClaudeClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := ClaudeRequest{
		Model:       c.model,
		MaxTokens:   prompt.maxTokens(c.maxTokens),
		System:      prompt.System,
		Temperature: prompt.temperature(c.temperature),
		Messages: []ClaudeMessage{
			{Role: "user", Content: prompt.User},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	middleware.PropagateHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		var errResp ClaudeError
		message := ""
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Type + ": " + errResp.Error.Message
		}
		return "", statusError(claudeProviderName, resp.StatusCode, message)
	}

	var claudeResp ClaudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%s: %w", claudeProviderName, ErrEmptyResponse)
	}

	c.logger.Debug("claude completion",
		zap.String("operation", prompt.Operation),
		zap.Int("input_tokens", claudeResp.Usage.InputTokens),
		zap.Int("output_tokens", claudeResp.Usage.OutputTokens),
		zap.String("stop_reason", claudeResp.StopReason),
	)

	return text.String(), nil
}
