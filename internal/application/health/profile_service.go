// Package health implements the longitudinal health profile store: free-text
// extraction of structured metrics from model responses, and zero-cost
// answers for queries the profile can already serve.
package health

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/usersync"
)

// FreshnessWindows holds the per-category staleness limits. Biomarkers move
// fast; stable traits keep their answers much longer.
type FreshnessWindows struct {
	Biomarker     time.Duration
	Micronutrient time.Duration
	Condition     time.Duration
}

// MetricChangeListener is notified when an extraction materially changes a
// profile entry, so dependent cached answers can be invalidated.
type MetricChangeListener interface {
	MetricChanged(ctx context.Context, userID uuid.UUID, metric string)
}

// Insight is a zero-cost answer rendered from the profile
type Insight struct {
	Metric string
	Answer string
	Source string
}

// ProfileService owns reads and extraction writes for health profiles.
// Concurrent extractions for the same user serialize through a keyed mutex
// so no read-modify-write update is lost.
type ProfileService struct {
	repo      outbound.ProfileRepository
	locks     *usersync.KeyedMutex
	freshness FreshnessWindows
	listeners []MetricChangeListener
	logger    *zap.Logger
	now       func() time.Time
}

// NewProfileService creates a profile service
func NewProfileService(repo outbound.ProfileRepository, freshness FreshnessWindows, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:      repo,
		locks:     usersync.New(64),
		freshness: freshness,
		logger:    logger.Named("health-profile"),
		now:       time.Now,
	}
}

// AddListener registers a metric-change listener
func (s *ProfileService) AddListener(l MetricChangeListener) {
	s.listeners = append(s.listeners, l)
}

func (s *ProfileService) windowFor(category health.MetricCategory) time.Duration {
	switch category {
	case health.CategoryBiomarker:
		return s.freshness.Biomarker
	case health.CategoryMicronutrient:
		return s.freshness.Micronutrient
	case health.CategoryCondition:
		return s.freshness.Condition
	default:
		return s.freshness.Biomarker
	}
}

// InsightForQuery matches a query against known metric synonyms and, when a
// fresh entry exists, renders a natural-language answer. Stale entries are
// treated as misses so the caller falls through to a real analysis.
func (s *ProfileService) InsightForQuery(ctx context.Context, userID uuid.UUID, query string) (*Insight, error) {
	q := strings.ToLower(query)

	for i := range metricPatterns {
		pattern := &metricPatterns[i]
		if !matchesSynonym(q, pattern.Synonyms) {
			continue
		}

		entry, err := s.repo.Get(ctx, userID, pattern.Metric)
		if err != nil || entry == nil {
			continue
		}
		if entry.IsStale(s.now(), s.windowFor(entry.Category)) {
			s.logger.Debug("Profile entry stale, treating as miss",
				zap.String("metric", entry.Metric),
				zap.Time("last_measured", entry.LastMeasured),
			)
			continue
		}

		return &Insight{
			Metric: entry.Metric,
			Answer: renderInsight(entry, pattern),
			Source: "Your personalized health profile",
		}, nil
	}
	return nil, nil
}

// ExtractAndStore parses a model response against the metric pattern table
// and applies every match to the profile. This is how a paid call pays for
// itself: the extracted values make repeat questions free. Returns the
// number of metrics stored.
func (s *ProfileService) ExtractAndStore(
	ctx context.Context,
	userID uuid.UUID,
	responseText string,
	analysisType string,
	confidence float64,
	source health.DataSource,
) (int, error) {
	matches := extractMeasurements(responseText, confidence, source, s.now())
	if len(matches) == 0 {
		return 0, nil
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	stored := 0
	for metric, m := range matches {
		pattern := PatternFor(metric)
		if pattern == nil {
			continue
		}

		entry, err := s.repo.Get(ctx, userID, metric)
		if err != nil || entry == nil {
			entry = health.NewProfileEntry(userID, metric, pattern.Category, m)
			entry.IdealRange = pattern.IdealRange
		} else {
			entry.Apply(m)
		}

		if err := s.repo.Put(ctx, entry); err != nil {
			s.logger.Error("Profile write failed",
				zap.String("metric", metric),
				zap.Error(err),
			)
			continue
		}
		stored++

		event := health.TimelineEvent{
			UserID:      userID,
			Metric:      metric,
			Description: fmt.Sprintf("%s updated from %s analysis", metric, analysisType),
			Source:      source,
			OccurredAt:  m.MeasuredAt,
		}
		if err := s.repo.AppendTimeline(ctx, event); err != nil {
			s.logger.Warn("Timeline append failed", zap.Error(err))
		}

		for _, l := range s.listeners {
			l.MetricChanged(ctx, userID, metric)
		}
	}

	s.logger.Info("Health data extracted",
		zap.String("user_id", userID.String()),
		zap.Int("metrics_stored", stored),
		zap.String("analysis_type", analysisType),
	)
	return stored, nil
}

// UnresolvedEntries returns the user's metrics still needing correction,
// ordered shortest correction timeline first.
func (s *ProfileService) UnresolvedEntries(ctx context.Context, userID uuid.UUID) ([]*health.ProfileEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var unresolved []*health.ProfileEntry
	for _, e := range entries {
		if e.IsUnresolved() {
			unresolved = append(unresolved, e)
		}
	}
	sortByResolutionDays(unresolved)
	return unresolved, nil
}

// Summary renders a compact profile description for retrieval context
func (s *ProfileService) Summary(ctx context.Context, userID uuid.UUID) (string, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Health profile: ")
	for i, e := range entries {
		if i > 0 {
			b.WriteString("; ")
		}
		if e.CurrentValue != 0 {
			fmt.Fprintf(&b, "%s %.1f %s (%s, %s)", displayName(e.Metric), e.CurrentValue, e.Unit, e.Status, e.Trend)
		} else {
			fmt.Fprintf(&b, "%s (%s, %s)", displayName(e.Metric), e.Status, e.Trend)
		}
	}
	return b.String(), nil
}

func sortByResolutionDays(entries []*health.ProfileEntry) {
	days := func(metric string) int {
		if p := PatternFor(metric); p != nil {
			return p.ResolutionDays
		}
		return 1 << 30
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && days(entries[j].Metric) < days(entries[j-1].Metric); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Extraction helpers

var valueRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

const extractionWindow = 120

// extractMeasurements scans response text for every known metric pattern
func extractMeasurements(text string, confidence float64, source health.DataSource, now time.Time) map[string]health.Measurement {
	lower := strings.ToLower(text)
	results := make(map[string]health.Measurement)

	for i := range metricPatterns {
		pattern := &metricPatterns[i]
		idx := synonymIndex(lower, pattern.Synonyms)
		if idx < 0 {
			continue
		}

		end := idx + extractionWindow
		if end > len(lower) {
			end = len(lower)
		}
		window := lower[idx:end]

		var value float64
		if pattern.Category != health.CategoryCondition {
			m := valueRe.FindString(window)
			if m == "" {
				continue
			}
			value, _ = strconv.ParseFloat(m, 64)
		}

		status := statusFromKeywords(window)
		if status == health.StatusUnknown && pattern.IdealRange != nil {
			status = statusFromRange(value, pattern.IdealRange)
		}
		if pattern.Category == health.CategoryCondition && status == health.StatusUnknown {
			// A named condition with no qualifier counts as present.
			status = health.StatusDeficient
		}

		results[pattern.Metric] = health.Measurement{
			Value:      value,
			Unit:       pattern.Unit,
			Status:     status,
			Source:     source,
			Confidence: confidence,
			MeasuredAt: now,
		}
	}
	return results
}

func synonymIndex(text string, synonyms []string) int {
	for _, syn := range synonyms {
		if idx := strings.Index(text, syn); idx >= 0 {
			return idx
		}
	}
	return -1
}

func matchesSynonym(text string, synonyms []string) bool {
	return synonymIndex(text, synonyms) >= 0
}

func statusFromKeywords(window string) health.MetricStatus {
	for _, kw := range deficiencyKeywords {
		if strings.Contains(window, kw) {
			return health.StatusDeficient
		}
	}
	for _, kw := range elevationKeywords {
		if strings.Contains(window, kw) {
			return health.StatusHigh
		}
	}
	for _, kw := range normalKeywords {
		if strings.Contains(window, kw) {
			return health.StatusNormal
		}
	}
	return health.StatusUnknown
}

func statusFromRange(value float64, r *health.IdealRange) health.MetricStatus {
	switch {
	case value < r.Min:
		return health.StatusLow
	case value > r.Max:
		return health.StatusHigh
	default:
		return health.StatusNormal
	}
}

func renderInsight(entry *health.ProfileEntry, pattern *MetricPattern) string {
	var b strings.Builder

	name := displayName(entry.Metric)
	if entry.CurrentValue != 0 {
		fmt.Fprintf(&b, "Your %s is %.1f %s, which is %s", name, entry.CurrentValue, entry.Unit, entry.Status)
	} else {
		fmt.Fprintf(&b, "Your profile shows %s with status %s", name, entry.Status)
	}

	if entry.Trend != health.TrendUnknown {
		fmt.Fprintf(&b, " and %s", entry.Trend)
	}
	b.WriteString(".")

	if entry.IdealRange != nil {
		fmt.Fprintf(&b, " The ideal range is %.1f-%.1f %s.", entry.IdealRange.Min, entry.IdealRange.Max, entry.IdealRange.Unit)
	}
	if entry.Status != health.StatusNormal && entry.Status != health.StatusOptimal && pattern.Recommendation != "" {
		fmt.Fprintf(&b, " Suggestion: %s.", pattern.Recommendation)
	}
	fmt.Fprintf(&b, " (Measured %s)", entry.LastMeasured.Format("Jan 2, 2006"))
	return b.String()
}

func displayName(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}
