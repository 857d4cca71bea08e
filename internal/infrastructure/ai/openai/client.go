// Package openai provides the OpenAI chat-completions provider
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/infrastructure/config"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

// ProviderName is the registry name for this provider
const ProviderName = "openai"

// Client implements the LLMProvider interface against the OpenAI API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an OpenAI client from configuration
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	timeout := cfg.L1.RequestTimeout
	if cfg.L2.RequestTimeout > timeout {
		timeout = cfg.L2.RequestTimeout
	}
	return &Client{
		apiKey:  cfg.OpenAIKey,
		baseURL: cfg.OpenAIBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("openai"),
	}
}

// OpenAI API structures
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Name returns the provider name
func (c *Client) Name() string { return ProviderName }

// Invoke sends a chat completion request and returns the model's answer
func (c *Client) Invoke(ctx context.Context, req outbound.ProviderRequest) (*outbound.ProviderResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("OpenAI returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.String("model", req.Model),
		)
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &outbound.ProviderResponse{
		Text:     completion.Choices[0].Message.Content,
		Provider: ProviderName,
		Model:    req.Model,
		Usage: outbound.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ outbound.LLMProvider = (*Client)(nil)
