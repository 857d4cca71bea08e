package chat

import (
	"sort"
	"strings"

	"github.com/vitalroute/v1/internal/domain/chat"
)

// Classifier confidence levels. Out-of-scope detection is high-confidence
// because the keyword list is curated; the floor default is low-confidence
// by construction.
const (
	outOfScopeConfidence = 0.9
	floorConfidence      = 0.3
)

// ScopeClassifier decides whether a query is in-domain and which topical
// domain it belongs to. It is a pure function over normalized text: no side
// effects, never fails, unknown input defaults to general wellness.
type ScopeClassifier struct {
	outOfScope []string
	domains    map[string][]string
	allowList  map[string]bool
}

// ClassifierOption customizes the classifier's keyword tables
type ClassifierOption func(*ScopeClassifier)

// WithOutOfScopeKeywords replaces the out-of-scope keyword table
func WithOutOfScopeKeywords(keywords []string) ClassifierOption {
	return func(c *ScopeClassifier) { c.outOfScope = keywords }
}

// WithDomainKeywords replaces the domain keyword tables
func WithDomainKeywords(domains map[string][]string) ClassifierOption {
	return func(c *ScopeClassifier) { c.domains = domains }
}

// NewScopeClassifier creates a classifier with the default keyword tables
func NewScopeClassifier(opts ...ClassifierOption) *ScopeClassifier {
	c := &ScopeClassifier{
		outOfScope: outOfScopeKeywords,
		domains:    domainKeywords,
		allowList:  inScopeDomains,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify labels a normalized query. Out-of-scope keywords short-circuit;
// otherwise the max-scoring domain wins with a general-wellness floor.
func (c *ScopeClassifier) Classify(query string) chat.Classification {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, kw := range c.outOfScope {
		if strings.Contains(q, kw) {
			return chat.Classification{
				Domain:     "",
				Confidence: outOfScopeConfidence,
				IsInScope:  false,
			}
		}
	}

	// Iterate domains in stable order so ties resolve deterministically.
	names := make([]string, 0, len(c.domains))
	for domain := range c.domains {
		names = append(names, domain)
	}
	sort.Strings(names)

	bestDomain := DomainGeneralWellness
	bestScore := 0.0
	for _, domain := range names {
		keywords := c.domains[domain]
		if len(keywords) == 0 {
			continue
		}
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				matched++
			}
		}
		score := float64(matched) / float64(len(keywords))
		if score > bestScore {
			bestScore = score
			bestDomain = domain
		}
	}

	// No keyword match at all falls back to the general-wellness default;
	// a weak match keeps its domain but is floored to the default confidence.
	if bestScore == 0 {
		bestDomain = DomainGeneralWellness
	}
	confidence := bestScore
	if confidence < floorConfidence {
		confidence = floorConfidence
	}

	return chat.Classification{
		Domain:     bestDomain,
		Confidence: confidence,
		IsInScope:  c.allowList[bestDomain],
	}
}
