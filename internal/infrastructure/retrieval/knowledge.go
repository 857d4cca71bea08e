package retrieval

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

// TypeKnowledgeBase labels static reference context
const TypeKnowledgeBase = "knowledge_base"

// KnowledgeSource serves static per-domain reference facts as retrieval
// candidates. Entries are shared across users and are not recency-gated:
// reference material stays eligible no matter how old the window is.
type KnowledgeSource struct {
	repo outbound.KnowledgeRepository
}

// NewKnowledgeSource creates a knowledge-base retrieval source
func NewKnowledgeSource(repo outbound.KnowledgeRepository) *KnowledgeSource {
	return &KnowledgeSource{repo: repo}
}

// Name returns the source name
func (s *KnowledgeSource) Name() string { return TypeKnowledgeBase }

// Fetch returns the knowledge entries for the query's domain
func (s *KnowledgeSource) Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]outbound.ContextCandidate, error) {
	entries, err := s.repo.ByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	candidates := make([]outbound.ContextCandidate, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, outbound.ContextCandidate{
			SourceName:  TypeKnowledgeBase,
			ContextType: entry.Topic,
			Text:        entry.Text,
		})
	}
	return candidates, nil
}

// SeedKnowledge loads the built-in reference facts into a knowledge store
func SeedKnowledge(ctx context.Context, repo outbound.KnowledgeRepository) error {
	for _, entry := range defaultKnowledge {
		if err := repo.Put(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

var defaultKnowledge = []outbound.KnowledgeEntry{
	{
		Domain: "nutrition",
		Topic:  "vitamin_d",
		Text:   "Vitamin D supports calcium absorption and immune function. Levels below 20 ng/mL are considered deficient; 30-50 ng/mL is the usual target. Fatty fish, fortified dairy, and sunlight exposure are the main sources in nutrition.",
	},
	{
		Domain: "nutrition",
		Topic:  "iron",
		Text:   "Iron carries oxygen in the blood. Heme iron from meat absorbs better than plant iron; pairing plant sources with vitamin C improves nutrition uptake, while coffee and tea taken with meals reduce it.",
	},
	{
		Domain: "nutrition",
		Topic:  "protein",
		Text:   "A common protein guideline in nutrition is 0.8 g per kg of body weight daily, higher for strength training. Spreading intake across meals supports muscle maintenance better than a single large serving.",
	},
	{
		Domain: "meal_planning",
		Topic:  "batch_cooking",
		Text:   "Effective meal planning batches a few base components - a grain, two proteins, roasted vegetables - and recombines them across the week. Cooked meals keep three to four days refrigerated.",
	},
	{
		Domain: "meal_planning",
		Topic:  "plate_method",
		Text:   "The plate method for meal planning fills half the plate with vegetables, a quarter with lean protein, and a quarter with whole grains, which keeps portions balanced without counting calories.",
	},
	{
		Domain: "health_reports",
		Topic:  "reference_ranges",
		Text:   "Lab reference ranges in health reports describe the middle 95% of a healthy population; a value slightly outside the range is not automatically a diagnosis. Trends across repeated tests matter more than a single reading.",
	},
	{
		Domain: "health_reports",
		Topic:  "retest_interval",
		Text:   "After starting supplementation or a dietary change, health reports are usually rechecked after 8-12 weeks; most blood markers need that long to reflect the intervention.",
	},
	{
		Domain: "fitness",
		Topic:  "recovery",
		Text:   "Muscles adapt during recovery, not during the workout itself. Fitness programs generally leave 48 hours before loading the same muscle group again, with sleep and protein intake driving the adaptation.",
	},
	{
		Domain: "supplements",
		Topic:  "fat_soluble",
		Text:   "Fat-soluble supplements - vitamins A, D, E, and K - absorb best taken with a meal containing fat, and unlike water-soluble vitamins they accumulate, so dosing above the label has real risk.",
	},
	{
		Domain: "general_wellness",
		Topic:  "hydration",
		Text:   "Hydration needs vary with body size and activity; urine color is a more reliable guide for general wellness than a fixed glass count. Thirst lags behind need during exercise.",
	},
	{
		Domain: "general_wellness",
		Topic:  "sleep",
		Text:   "Most adults need 7-9 hours of sleep; consistent timing matters as much as duration for general wellness. Short sleep measurably raises appetite and reduces glucose control within days.",
	},
}
