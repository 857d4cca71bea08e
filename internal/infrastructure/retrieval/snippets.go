package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/usersync"
)

// TypeUserSnippet labels caller-indexed context
const TypeUserSnippet = "user_snippet"

// snippet is one stored context fragment
type snippet struct {
	ContextType string    `json:"context_type"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// SnippetStore holds context fragments pushed in by the caller (notes,
// imported records, preferences) and serves them back as a retrieval
// source. Storage rides the cache repository; oldest snippets roll off
// past the cap.
type SnippetStore struct {
	cache outbound.CacheRepository
	locks *usersync.KeyedMutex
	ttl   time.Duration
	max   int
}

// NewSnippetStore creates a cache-backed snippet store
func NewSnippetStore(cache outbound.CacheRepository, ttl time.Duration, maxSnippets int) *SnippetStore {
	if maxSnippets <= 0 {
		maxSnippets = 50
	}
	return &SnippetStore{
		cache: cache,
		locks: usersync.New(16),
		ttl:   ttl,
		max:   maxSnippets,
	}
}

func (s *SnippetStore) key(userID uuid.UUID) string {
	return "snippets:" + userID.String()
}

// Index appends one snippet for a user, evicting the oldest past the cap
func (s *SnippetStore) Index(ctx context.Context, userID uuid.UUID, contextType, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("snippet text must not be empty")
	}
	if contextType == "" {
		contextType = TypeUserSnippet
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	snippets := s.read(ctx, userID)
	snippets = append(snippets, snippet{
		ContextType: contextType,
		Text:        text,
		CreatedAt:   time.Now(),
	})
	if len(snippets) > s.max {
		snippets = snippets[len(snippets)-s.max:]
	}

	data, err := json.Marshal(snippets)
	if err != nil {
		return fmt.Errorf("failed to marshal snippets: %w", err)
	}
	return s.cache.Set(ctx, s.key(userID), data, s.ttl)
}

// Name returns the source name
func (s *SnippetStore) Name() string { return TypeUserSnippet }

// Fetch returns the user's stored snippets inside the recency window
func (s *SnippetStore) Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]outbound.ContextCandidate, error) {
	snippets := s.read(ctx, userID)

	candidates := make([]outbound.ContextCandidate, 0, len(snippets))
	for _, snip := range snippets {
		if snip.CreatedAt.Before(since) {
			continue
		}
		candidates = append(candidates, outbound.ContextCandidate{
			SourceName:  TypeUserSnippet,
			ContextType: snip.ContextType,
			Text:        snip.Text,
			CreatedAt:   snip.CreatedAt,
		})
	}
	return candidates, nil
}

func (s *SnippetStore) read(ctx context.Context, userID uuid.UUID) []snippet {
	data, err := s.cache.Get(ctx, s.key(userID))
	if err != nil {
		return nil
	}
	var snippets []snippet
	if err := json.Unmarshal(data, &snippets); err != nil {
		return nil
	}
	return snippets
}

var _ outbound.ContextSource = (*SnippetStore)(nil)
