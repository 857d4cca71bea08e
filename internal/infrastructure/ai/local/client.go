// Package local provides the zero-cost fallback provider used when the
// token budget is exhausted or the paid provider is unreachable. Answers
// come from the context already retrieved for the prompt, so they stay
// user-specific without an external call.
package local

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

// ProviderName is the registry name for this provider
const ProviderName = "local"

// Client implements a template-based free-tier responder
type Client struct {
	logger *zap.Logger
}

// NewClient creates the local provider
func NewClient(logger *zap.Logger) *Client {
	return &Client{logger: logger.Named("local-provider")}
}

// Name returns the provider name
func (c *Client) Name() string { return ProviderName }

// Invoke composes an answer from the retrieved context embedded in the
// system prompt. It never fails and never consumes quota.
func (c *Client) Invoke(ctx context.Context, req outbound.ProviderRequest) (*outbound.ProviderResponse, error) {
	var b strings.Builder

	contextBlock := extractContextBlock(req.SystemPrompt)
	if contextBlock != "" {
		b.WriteString("Based on what I know about you:\n\n")
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
		b.WriteString("For a deeper analysis of \"")
		b.WriteString(req.UserPrompt)
		b.WriteString("\", ask again once your daily allowance resets.")
	} else {
		b.WriteString("I can give general guidance here: for \"")
		b.WriteString(req.UserPrompt)
		b.WriteString("\", focus on a balanced diet, regular activity, and consistent sleep. ")
		b.WriteString("A personalized answer needs your daily allowance, which has been used up for today.")
	}

	text := b.String()
	return &outbound.ProviderResponse{
		Text:     text,
		Provider: ProviderName,
		Model:    "template-v1",
		Usage: outbound.TokenUsage{
			CompletionTokens: len(text) / 4,
			TotalTokens:      len(text) / 4,
		},
	}, nil
}

// extractContextBlock pulls the user-context section the router embeds in
// the system prompt
func extractContextBlock(systemPrompt string) string {
	const marker = "Relevant context about this user:\n"
	start := strings.Index(systemPrompt, marker)
	if start < 0 {
		return ""
	}
	rest := systemPrompt[start+len(marker):]
	if end := strings.Index(rest, "\nConstraints:"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

var _ outbound.LLMProvider = (*Client)(nil)
