// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
)

// SessionRepository defines the interface for chat session persistence
type SessionRepository interface {
	Save(ctx context.Context, session *chat.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*chat.Session, error)
	FindReusableByUser(ctx context.Context, userID uuid.UUID, sessionType chat.SessionType) (*chat.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*chat.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageRepository defines the interface for message persistence.
// Messages are append-only per session and listed in creation order.
type MessageRepository interface {
	Save(ctx context.Context, message *chat.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*chat.Message, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*chat.Message, error)
}

// ProfileRepository defines the interface for health profile persistence
type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID, metric string) (*health.ProfileEntry, error)
	Put(ctx context.Context, entry *health.ProfileEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*health.ProfileEntry, error)
	AppendTimeline(ctx context.Context, event health.TimelineEvent) error
}

// DietPlanRepository defines the interface for diet plan persistence.
// Superseded plans are retained for history.
type DietPlanRepository interface {
	Save(ctx context.Context, plan *dietplan.Plan) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*dietplan.Plan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*dietplan.Plan, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Counter operations
	Increment(ctx context.Context, key string) (int64, error)
	IncrementBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

// TokenUsage tracks token consumption for one provider call
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ProviderRequest is the assembled request for a language model call
type ProviderRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ProviderResponse is the black-box language model result
type ProviderResponse struct {
	Text     string
	Provider string
	Model    string
	Usage    TokenUsage
}

// LLMProvider defines the interface for a language model backend
type LLMProvider interface {
	Name() string
	Invoke(ctx context.Context, req ProviderRequest) (*ProviderResponse, error)
}

// ContextCandidate is one raw snippet gathered for retrieval ranking
type ContextCandidate struct {
	SourceName  string
	ContextType string
	Text        string
	CreatedAt   time.Time
}

// ContextSource defines one RAG candidate source. A fetch failure excludes
// the source from a retrieval without failing the whole operation.
type ContextSource interface {
	Name() string
	Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]ContextCandidate, error)
}

// KnowledgeEntry is one static domain reference fact
type KnowledgeEntry struct {
	Domain string
	Topic  string
	Text   string
}

// KnowledgeRepository stores the static per-domain knowledge base
type KnowledgeRepository interface {
	Put(ctx context.Context, entry KnowledgeEntry) error
	ByDomain(ctx context.Context, domain string) ([]KnowledgeEntry, error)
}

// Normalizer preprocesses free text before classification and caching
type Normalizer interface {
	Normalize(text string) (normalized string, languageTag string)
}
