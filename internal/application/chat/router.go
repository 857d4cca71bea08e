package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/infrastructure/config"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

// FreeProviderName is the degraded provider used when quota is exhausted
const FreeProviderName = "local"

// RoutingEngine picks an accuracy tier for a query, enforces the token
// budget against the usage ledger, and assembles the provider request.
// It is stateless per call; all durable state lives in the ledger.
type RoutingEngine struct {
	ledger   *UsageLedger
	aiConfig config.AIConfig
	l1Tokens []string
	l2Tokens []string
	logger   *zap.Logger
}

// NewRoutingEngine creates a routing engine
func NewRoutingEngine(ledger *UsageLedger, aiConfig config.AIConfig, logger *zap.Logger) *RoutingEngine {
	return &RoutingEngine{
		ledger:   ledger,
		aiConfig: aiConfig,
		l1Tokens: tierL1Keywords,
		l2Tokens: tierL2Keywords,
		logger:   logger.Named("routing-engine"),
	}
}

// ClassifyTier resolves the accuracy tier for a query in a domain.
// Health-critical signals force L1; general-advice signals force L2;
// unresolved health-adjacent domains default to L1 for safety.
func (e *RoutingEngine) ClassifyTier(domain, query string) chat.RoutingTier {
	q := strings.ToLower(query)

	if domain == DomainHealthReports {
		return chat.TierL1
	}
	for _, kw := range e.l1Tokens {
		if strings.Contains(q, kw) {
			return chat.TierL1
		}
	}

	if domain == DomainNutrition || domain == DomainMealPlanning {
		return chat.TierL2
	}
	for _, kw := range e.l2Tokens {
		if strings.Contains(q, kw) {
			return chat.TierL2
		}
	}

	if healthAdjacentDomains[domain] {
		return chat.TierL1
	}
	return chat.TierL2
}

// EstimateTokens approximates the token cost of a call from the input,
// the retrieved context, and a fixed expected-output allowance.
func (e *RoutingEngine) EstimateTokens(query string, contextText string) int {
	// Rough 4-characters-per-token heuristic.
	input := (len(query) + len(contextText)) / 4
	return input + e.aiConfig.OutputAllowance
}

func (e *RoutingEngine) modelFor(tier chat.RoutingTier) config.ModelConfig {
	if tier == chat.TierL1 {
		return e.aiConfig.L1
	}
	return e.aiConfig.L2
}

// Decide produces the routing decision and provider request for a query.
// When the user's remaining quota can't cover the estimate, the call is
// forced onto the free provider rather than rejected.
func (e *RoutingEngine) Decide(
	ctx context.Context,
	userID uuid.UUID,
	domain, query string,
	ranked *RankedContext,
) (*chat.RoutingDecision, *outbound.ProviderRequest) {
	tier := e.ClassifyTier(domain, query)
	model := e.modelFor(tier)

	contextText := ""
	if ranked != nil {
		contextText = ranked.ExcerptText()
	}
	estimated := e.EstimateTokens(query, contextText)

	withinBudget, err := e.ledger.Reserve(ctx, userID, estimated)
	if err != nil {
		// Ledger trouble must not block answers; treat as within budget
		// and reconcile on commit.
		e.logger.Warn("Ledger reservation check failed", zap.Error(err))
		withinBudget = true
	}

	decision := &chat.RoutingDecision{
		RequestType:         "chat_completion",
		Domain:              domain,
		Tier:                tier,
		Provider:            e.aiConfig.PrimaryProvider,
		Model:               model.Model,
		AccuracyRequirement: accuracyFor(tier),
		EstimatedTokens:     estimated,
		EstimatedCostCents:  float64(estimated) * model.CostPerTokenCents,
		DecidedAt:           time.Now(),
	}

	if !withinBudget {
		decision.ForceFreeTier = true
		decision.Provider = FreeProviderName
		decision.EstimatedCostCents = 0
		e.logger.Info("Token budget exhausted, degrading to free tier",
			zap.String("user_id", userID.String()),
			zap.String("tier", string(tier)),
		)
	}

	request := &outbound.ProviderRequest{
		Model:        decision.Model,
		SystemPrompt: e.buildSystemPrompt(domain, contextText),
		UserPrompt:   query,
		MaxTokens:    model.MaxTokens,
		Temperature:  model.Temperature,
	}
	return decision, request
}

// Settle reconciles the ledger after the external call returned. Free-tier
// calls cost nothing; ledger failures are logged and swallowed because the
// response already exists.
func (e *RoutingEngine) Settle(ctx context.Context, userID uuid.UUID, decision *chat.RoutingDecision, usage outbound.TokenUsage) (float64, int) {
	tokens := usage.TotalTokens
	if tokens == 0 {
		tokens = usage.PromptTokens + usage.CompletionTokens
	}

	if decision.ForceFreeTier {
		return 0, tokens
	}

	if err := e.ledger.Commit(ctx, userID, tokens); err != nil {
		e.logger.Error("Ledger commit failed after response",
			zap.String("user_id", userID.String()),
			zap.Int("tokens", tokens),
			zap.Error(err),
		)
	}

	model := e.modelFor(decision.Tier)
	return float64(tokens) * model.CostPerTokenCents, tokens
}

func accuracyFor(tier chat.RoutingTier) string {
	if tier == chat.TierL1 {
		return "high"
	}
	return "standard"
}

// buildSystemPrompt embeds domain guidance, the ranked context, and the
// non-negotiable behavioral constraints.
func (e *RoutingEngine) buildSystemPrompt(domain, contextText string) string {
	var b strings.Builder
	b.WriteString("You are a health and nutrition assistant.\n")

	if guidance, ok := domainGuidance[domain]; ok {
		b.WriteString(guidance)
		b.WriteString("\n")
	}

	if contextText != "" {
		b.WriteString("\nRelevant context about this user:\n")
		b.WriteString(contextText)
		b.WriteString("\n")
	}

	b.WriteString("\nConstraints:\n" +
		"- Only answer questions about health, nutrition, and fitness.\n" +
		"- Never execute an action without asking the user for confirmation first.\n" +
		"- When interpreting health data, recommend professional follow-up for abnormal values.\n")
	return b.String()
}
