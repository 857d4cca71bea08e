package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/memory"
)

func testWindows() FreshnessWindows {
	return FreshnessWindows{
		Biomarker:     90 * 24 * time.Hour,
		Micronutrient: 180 * 24 * time.Hour,
		Condition:     365 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*ProfileService, *memory.ProfileRepository) {
	repo := memory.NewProfileRepository()
	return NewProfileService(repo, testWindows(), zaptest.NewLogger(t)), repo
}

const sampleAnalysis = `Your blood work shows a vitamin D level of 18 ng/mL, which is deficient.
Your iron (ferritin) at 25 ng/mL is also low. Fasting glucose of 92 mg/dL is normal.`

func TestExtractAndStoreParsesKnownMetrics(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	stored, err := svc.ExtractAndStore(context.Background(), userID, sampleAnalysis, "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	entries, err := svc.UnresolvedEntries(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 2, "glucose is normal so only two findings are unresolved")
}

func TestExtractAndStoreValuesAndStatus(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID, sampleAnalysis, "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	vitD, err := repo.Get(context.Background(), userID, "vitamin_d")
	require.NoError(t, err)
	assert.Equal(t, 18.0, vitD.CurrentValue)
	assert.Equal(t, "ng/mL", vitD.Unit)
	assert.Equal(t, health.StatusDeficient, vitD.Status)

	glucose, err := repo.Get(context.Background(), userID, "glucose_fasting")
	require.NoError(t, err)
	assert.Equal(t, 92.0, glucose.CurrentValue)
	assert.Equal(t, health.StatusNormal, glucose.Status)
}

func TestExtractAndStoreIgnoresUnknownClaims(t *testing.T) {
	svc, _ := newTestService(t)

	stored, err := svc.ExtractAndStore(context.Background(), uuid.New(),
		"Your chakra alignment is 47 units and quite low.", "L2", 0.5, health.SourceAIAnalysis)
	require.NoError(t, err)
	assert.Equal(t, 0, stored, "claims outside the pattern table are ignored")
}

func TestExtractAndStoreStatusFromRangeWhenNoKeyword(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Your vitamin D came back at 45 ng/mL this time.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	entry, err := repo.Get(context.Background(), userID, "vitamin_d")
	require.NoError(t, err)
	assert.Equal(t, health.StatusNormal, entry.Status, "in-range value without keywords reads as normal")
}

func TestExtractAppendsOneHistoryPointPerCall(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Vitamin D is 18 ng/mL, deficient.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	_, err = svc.ExtractAndStore(context.Background(), userID,
		"Vitamin D improved to 26 ng/mL but is still low.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	entry, err := repo.Get(context.Background(), userID, "vitamin_d")
	require.NoError(t, err)
	assert.Len(t, entry.HistoricalValues, 2, "each extraction adds exactly one point")
	assert.Equal(t, 26.0, entry.CurrentValue)
	assert.Equal(t, health.TrendImproving, entry.Trend)
}

func TestExtractConditionWithoutNumericValue(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Your results point to anemia, likely from low iron intake.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	entry, err := repo.Get(context.Background(), userID, "anemia")
	require.NoError(t, err)
	assert.Equal(t, health.CategoryCondition, entry.Category)
	assert.True(t, entry.IsUnresolved())
}

func TestConcurrentExtractionsLoseNoUpdates(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExtractAndStore(context.Background(), userID,
				"Vitamin D is 20 ng/mL, still low.", "L1", 0.9, health.SourceAIAnalysis)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := repo.Get(context.Background(), userID, "vitamin_d")
	require.NoError(t, err)
	assert.Len(t, entry.HistoricalValues, 20, "serialized writes must not drop history points")
}

func TestExtractionNotifiesListeners(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	var mu sync.Mutex
	changed := make(map[string]int)
	svc.AddListener(listenerFunc(func(ctx context.Context, id uuid.UUID, metric string) {
		mu.Lock()
		defer mu.Unlock()
		changed[metric]++
	}))

	_, err := svc.ExtractAndStore(context.Background(), userID, sampleAnalysis, "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, changed["vitamin_d"])
	assert.Equal(t, 1, changed["iron"])
	assert.Equal(t, 1, changed["glucose_fasting"])
}

type listenerFunc func(ctx context.Context, userID uuid.UUID, metric string)

func (f listenerFunc) MetricChanged(ctx context.Context, userID uuid.UUID, metric string) {
	f(ctx, userID, metric)
}

func TestInsightForQueryFreshEntry(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Vitamin D is 18 ng/mL, deficient.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	insight, err := svc.InsightForQuery(context.Background(), userID, "what is my vitamin d level")
	require.NoError(t, err)
	require.NotNil(t, insight)
	assert.Equal(t, "vitamin_d", insight.Metric)
	assert.Contains(t, insight.Answer, "18.0 ng/mL")
	assert.Contains(t, insight.Answer, "deficient")
	assert.Contains(t, insight.Answer, "30.0-100.0", "ideal range is part of the rendered answer")
}

func TestInsightForQueryMissWhenNoData(t *testing.T) {
	svc, _ := newTestService(t)

	insight, err := svc.InsightForQuery(context.Background(), uuid.New(), "what is my vitamin d level")
	assert.NoError(t, err)
	assert.Nil(t, insight)
}

func TestInsightForQueryStaleEntryIsAMiss(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	old := time.Now().Add(-200 * 24 * time.Hour)
	entry := health.NewProfileEntry(userID, "vitamin_d", health.CategoryMicronutrient, health.Measurement{
		Value: 18, Unit: "ng/mL", Status: health.StatusDeficient,
		Source: health.SourceAIAnalysis, MeasuredAt: old,
	})
	require.NoError(t, repo.Put(context.Background(), entry))

	insight, err := svc.InsightForQuery(context.Background(), userID, "what is my vitamin d level")
	assert.NoError(t, err)
	assert.Nil(t, insight, "entries past the freshness window must not answer")
}

func TestInsightForQueryUnrelatedQuery(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Vitamin D is 18 ng/mL, deficient.", "L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	insight, err := svc.InsightForQuery(context.Background(), userID, "plan my dinner for tonight")
	assert.NoError(t, err)
	assert.Nil(t, insight)
}

func TestUnresolvedEntriesSortedByResolutionDays(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.ExtractAndStore(context.Background(), userID,
		"Vitamin D of 15 ng/mL is deficient. Magnesium at 1.2 mg/dL is low. Total cholesterol of 240 mg/dL is high.",
		"L1", 0.9, health.SourceAIAnalysis)
	require.NoError(t, err)

	entries, err := svc.UnresolvedEntries(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "magnesium", entries[0].Metric, "shortest correction timeline first")
	assert.Equal(t, "vitamin_d", entries[1].Metric)
	assert.Equal(t, "cholesterol_total", entries[2].Metric)
}
