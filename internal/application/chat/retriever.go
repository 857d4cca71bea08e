package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

// Scoring bonuses for candidate ranking
const (
	domainMentionBonus = 0.2
	recencyBonus       = 0.1
)

// RetrievalOptions tune one retrieval
type RetrievalOptions struct {
	MaxDocuments       int
	RelevanceThreshold float64
	ContextTypes       []string
}

// RankedDocument is one scored, excerpted context fragment
type RankedDocument struct {
	SourceName  string  `json:"source_name"`
	ContextType string  `json:"context_type"`
	Excerpt     string  `json:"excerpt"`
	Relevance   float64 `json:"relevance"`
}

// RankedContext is the assembled retrieval result
type RankedContext struct {
	Documents          []RankedDocument `json:"documents"`
	DocumentsRetrieved int              `json:"documents_retrieved"`
	AvgRelevanceScore  float64          `json:"avg_relevance_score"`
	RetrievalTime      time.Duration    `json:"retrieval_time"`
	FailedSources      []string         `json:"failed_sources,omitempty"`
}

// ExcerptText joins the ranked excerpts for prompt assembly
func (rc *RankedContext) ExcerptText() string {
	parts := make([]string, 0, len(rc.Documents))
	for _, d := range rc.Documents {
		parts = append(parts, d.Excerpt)
	}
	return strings.Join(parts, "\n\n")
}

// SourceNames lists the sources that contributed documents
func (rc *RankedContext) SourceNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range rc.Documents {
		if !seen[d.SourceName] {
			seen[d.SourceName] = true
			names = append(names, d.SourceName)
		}
	}
	return names
}

// ContextRetriever gathers candidate fragments from its sources, scores
// them against the query, and returns the top-ranked excerpts. A failing
// source contributes zero candidates instead of failing the retrieval.
type ContextRetriever struct {
	sources       []outbound.ContextSource
	excerptBudget int
	recencyWindow time.Duration
	sourceTimeout time.Duration
	logger        *zap.Logger
}

// NewContextRetriever creates a retriever over the given sources
func NewContextRetriever(
	sources []outbound.ContextSource,
	excerptBudget int,
	recencyWindow time.Duration,
	sourceTimeout time.Duration,
	logger *zap.Logger,
) *ContextRetriever {
	return &ContextRetriever{
		sources:       sources,
		excerptBudget: excerptBudget,
		recencyWindow: recencyWindow,
		sourceTimeout: sourceTimeout,
		logger:        logger.Named("context-retriever"),
	}
}

// Retrieve fans out to all sources concurrently, then ranks and truncates
func (r *ContextRetriever) Retrieve(ctx context.Context, userID uuid.UUID, query, domain string, opts RetrievalOptions) *RankedContext {
	start := time.Now()
	since := start.Add(-r.recencyWindow)

	var mu sync.Mutex
	var candidates []outbound.ContextCandidate
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range r.sources {
		source := source
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, r.sourceTimeout)
			defer cancel()

			items, err := source.Fetch(fetchCtx, userID, domain, since)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Partial-failure tolerant: log, exclude, continue.
				r.logger.Warn("Context source failed",
					zap.String("source", source.Name()),
					zap.Error(err),
				)
				failed = append(failed, source.Name())
				return nil
			}
			candidates = append(candidates, items...)
			return nil
		})
	}
	g.Wait()

	typeFilter := make(map[string]bool)
	for _, t := range opts.ContextTypes {
		typeFilter[t] = true
	}

	var docs []RankedDocument
	for _, cand := range candidates {
		if len(typeFilter) > 0 && !typeFilter[cand.ContextType] {
			continue
		}
		score := r.score(query, domain, cand, start)
		if score < opts.RelevanceThreshold {
			continue
		}
		docs = append(docs, RankedDocument{
			SourceName:  cand.SourceName,
			ContextType: cand.ContextType,
			Excerpt:     truncateAtWhitespace(cand.Text, r.excerptBudget),
			Relevance:   score,
		})
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Relevance > docs[j].Relevance })
	if opts.MaxDocuments > 0 && len(docs) > opts.MaxDocuments {
		docs = docs[:opts.MaxDocuments]
	}

	var sum float64
	for _, d := range docs {
		sum += d.Relevance
	}
	avg := 0.0
	if len(docs) > 0 {
		avg = sum / float64(len(docs))
	}

	result := &RankedContext{
		Documents:          docs,
		DocumentsRetrieved: len(docs),
		AvgRelevanceScore:  avg,
		RetrievalTime:      time.Since(start),
		FailedSources:      failed,
	}

	r.logger.Debug("Context retrieved",
		zap.String("domain", domain),
		zap.Int("documents", result.DocumentsRetrieved),
		zap.Float64("avg_relevance", result.AvgRelevanceScore),
		zap.Duration("took", result.RetrievalTime),
	)
	return result
}

// score combines keyword overlap with domain and recency bonuses
func (r *ContextRetriever) score(query, domain string, cand outbound.ContextCandidate, now time.Time) float64 {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return 0
	}

	text := strings.ToLower(cand.Text)
	matched := 0
	for word := range queryWords {
		if strings.Contains(text, word) {
			matched++
		}
	}
	score := float64(matched) / float64(len(queryWords))

	if domain != "" && strings.Contains(text, strings.ToLower(strings.ReplaceAll(domain, "_", " "))) {
		score += domainMentionBonus
	}
	if now.Sub(cand.CreatedAt) <= r.recencyWindow/4 {
		score += recencyBonus
	}
	return score
}

// tokenize lowercases and splits a query into distinct significant words
func tokenize(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) > 2 && !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "how": true, "why": true, "can": true, "should": true,
	"about": true, "with": true, "have": true, "this": true, "that": true,
	"you": true, "your": true, "them": true,
}

// truncateAtWhitespace cuts text to the budget, breaking on the last
// whitespace before the limit so excerpts never end mid-word. The cut
// never splits a multi-byte rune.
func truncateAtWhitespace(text string, budget int) string {
	if budget <= 0 || len(text) <= budget {
		return text
	}
	for budget > 0 && !utf8.RuneStart(text[budget]) {
		budget--
	}
	cut := text[:budget]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
