package health

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func measurement(value float64, status MetricStatus, at time.Time) Measurement {
	return Measurement{
		Value:      value,
		Unit:       "ng/mL",
		Status:     status,
		Source:     SourceAIAnalysis,
		Confidence: 0.9,
		MeasuredAt: at,
	}
}

func TestNewProfileEntry(t *testing.T) {
	now := time.Now()
	entry := NewProfileEntry(uuid.New(), "vitamin_d", CategoryMicronutrient, measurement(18, StatusDeficient, now))

	assert.Equal(t, 18.0, entry.CurrentValue)
	assert.Equal(t, StatusDeficient, entry.Status)
	assert.Equal(t, TrendUnknown, entry.Trend, "first measurement has no trend")
	assert.Len(t, entry.HistoricalValues, 1)
}

func TestApplyAppendsExactlyOneHistoryPoint(t *testing.T) {
	now := time.Now()
	entry := NewProfileEntry(uuid.New(), "vitamin_d", CategoryMicronutrient, measurement(18, StatusDeficient, now))

	entry.Apply(measurement(25, StatusLow, now.Add(time.Hour)))
	assert.Len(t, entry.HistoricalValues, 2)

	entry.Apply(measurement(32, StatusNormal, now.Add(2*time.Hour)))
	assert.Len(t, entry.HistoricalValues, 3)
	assert.Equal(t, 32.0, entry.CurrentValue, "latest measurement wins")
	assert.Equal(t, StatusNormal, entry.Status)
}

func TestTrendDirectionDependsOnPreviousStatus(t *testing.T) {
	now := time.Now()

	// Rising from deficient improves.
	deficient := NewProfileEntry(uuid.New(), "vitamin_d", CategoryMicronutrient, measurement(15, StatusDeficient, now))
	deficient.Apply(measurement(22, StatusLow, now.Add(time.Hour)))
	assert.Equal(t, TrendImproving, deficient.Trend)

	// Rising from high declines.
	high := NewProfileEntry(uuid.New(), "ldl", CategoryBiomarker, measurement(140, StatusHigh, now))
	high.Apply(measurement(160, StatusHigh, now.Add(time.Hour)))
	assert.Equal(t, TrendDeclining, high.Trend)

	// Falling from high improves.
	recovering := NewProfileEntry(uuid.New(), "ldl", CategoryBiomarker, measurement(140, StatusHigh, now))
	recovering.Apply(measurement(110, StatusHigh, now.Add(time.Hour)))
	assert.Equal(t, TrendImproving, recovering.Trend)

	// Unchanged value is stable.
	stable := NewProfileEntry(uuid.New(), "iron", CategoryMicronutrient, measurement(50, StatusNormal, now))
	stable.Apply(measurement(50, StatusNormal, now.Add(time.Hour)))
	assert.Equal(t, TrendStable, stable.Trend)
}

func TestConditionTrendFallsBackToStatusRank(t *testing.T) {
	now := time.Now()
	entry := NewProfileEntry(uuid.New(), "anemia", CategoryCondition, Measurement{
		Status: StatusDeficient, Source: SourceAIAnalysis, MeasuredAt: now,
	})
	entry.Apply(Measurement{Status: StatusNormal, Source: SourceAIAnalysis, MeasuredAt: now.Add(time.Hour)})
	assert.Equal(t, TrendImproving, entry.Trend)
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	entry := NewProfileEntry(uuid.New(), "vitamin_d", CategoryMicronutrient, measurement(18, StatusDeficient, now))

	assert.False(t, entry.IsStale(now.Add(24*time.Hour), 90*24*time.Hour))
	assert.True(t, entry.IsStale(now.Add(91*24*time.Hour), 90*24*time.Hour))
}

func TestIsUnresolved(t *testing.T) {
	now := time.Now()
	cases := []struct {
		status     MetricStatus
		unresolved bool
	}{
		{StatusDeficient, true},
		{StatusLow, true},
		{StatusHigh, true},
		{StatusNormal, false},
		{StatusOptimal, false},
		{StatusUnknown, false},
	}
	for _, tc := range cases {
		entry := NewProfileEntry(uuid.New(), "metric", CategoryBiomarker, measurement(1, tc.status, now))
		assert.Equal(t, tc.unresolved, entry.IsUnresolved(), "status %s", tc.status)
	}
}
