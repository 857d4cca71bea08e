// Package health contains the longitudinal health profile domain model.
// A profile is a per-user map of metrics built from prior AI analyses;
// it is what lets repeated questions be answered at zero cost.
package health

import (
	"time"

	"github.com/google/uuid"
)

// MetricCategory groups metrics by kind
type MetricCategory string

const (
	CategoryMicronutrient MetricCategory = "micronutrient"
	CategoryBiomarker     MetricCategory = "biomarker"
	CategoryCondition     MetricCategory = "condition"
)

// MetricStatus is the interpreted state of a metric value
type MetricStatus string

const (
	StatusOptimal   MetricStatus = "optimal"
	StatusNormal    MetricStatus = "normal"
	StatusLow       MetricStatus = "low"
	StatusDeficient MetricStatus = "deficient"
	StatusHigh      MetricStatus = "high"
	StatusUnknown   MetricStatus = "unknown"
)

// Trend describes metric movement relative to the previous measurement
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendUnknown   Trend = "unknown"
)

// DataSource records where a measurement came from
type DataSource string

const (
	SourceAIAnalysis   DataSource = "ai_analysis"
	SourceHealthReport DataSource = "health_report"
	SourceUserInput    DataSource = "user_input"
)

// IdealRange is the target band for a metric
type IdealRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// Measurement is one historical data point for a metric
type Measurement struct {
	Value      float64      `json:"value"`
	Unit       string       `json:"unit"`
	Status     MetricStatus `json:"status"`
	Source     DataSource   `json:"source"`
	Confidence float64      `json:"confidence"`
	MeasuredAt time.Time    `json:"measured_at"`
}

// ProfileEntry is one metric in a user's health profile.
// Entries are never deleted, only appended to, so trends stay computable.
type ProfileEntry struct {
	UserID           uuid.UUID      `json:"user_id"`
	Metric           string         `json:"metric"`
	Category         MetricCategory `json:"category"`
	CurrentValue     float64        `json:"current_value"`
	Unit             string         `json:"unit"`
	Status           MetricStatus   `json:"status"`
	Trend            Trend          `json:"trend"`
	IdealRange       *IdealRange    `json:"ideal_range,omitempty"`
	LastMeasured     time.Time      `json:"last_measured"`
	DataSource       DataSource     `json:"data_source"`
	HistoricalValues []Measurement  `json:"historical_values"`
}

// NewProfileEntry creates an entry from a first measurement
func NewProfileEntry(userID uuid.UUID, metric string, category MetricCategory, m Measurement) *ProfileEntry {
	return &ProfileEntry{
		UserID:           userID,
		Metric:           metric,
		Category:         category,
		CurrentValue:     m.Value,
		Unit:             m.Unit,
		Status:           m.Status,
		Trend:            TrendUnknown,
		LastMeasured:     m.MeasuredAt,
		DataSource:       m.Source,
		HistoricalValues: []Measurement{m},
	}
}

// Apply records a new measurement: trend is computed against the previous
// value, history gains exactly one point, and the current value/status/unit
// are replaced. Latest wins; nothing is silently overwritten.
func (e *ProfileEntry) Apply(m Measurement) {
	e.Trend = computeTrend(e.Category, e.Status, e.CurrentValue, m)
	e.HistoricalValues = append(e.HistoricalValues, m)
	e.CurrentValue = m.Value
	e.Unit = m.Unit
	e.Status = m.Status
	e.LastMeasured = m.MeasuredAt
	e.DataSource = m.Source
}

// IsStale reports whether the entry is older than the freshness window.
// Stale entries are treated as misses so callers fall through to a real
// analysis instead of serving outdated numbers.
func (e *ProfileEntry) IsStale(now time.Time, window time.Duration) bool {
	return now.Sub(e.LastMeasured) > window
}

// IsUnresolved reports whether the metric still needs correction
func (e *ProfileEntry) IsUnresolved() bool {
	switch e.Status {
	case StatusDeficient, StatusLow, StatusHigh:
		return true
	default:
		return false
	}
}

// computeTrend compares a new measurement to the stored state. Direction of
// "improvement" depends on the previous status: moving up from deficient/low
// improves, moving up from high declines.
func computeTrend(category MetricCategory, prevStatus MetricStatus, prevValue float64, m Measurement) Trend {
	if prevValue == 0 && m.Value == 0 {
		// Conditions often carry no numeric value; fall back to status.
		return trendFromStatus(prevStatus, m.Status)
	}

	const epsilon = 1e-9
	delta := m.Value - prevValue
	if delta > -epsilon && delta < epsilon {
		return TrendStable
	}

	rising := delta > 0
	switch prevStatus {
	case StatusDeficient, StatusLow:
		if rising {
			return TrendImproving
		}
		return TrendDeclining
	case StatusHigh:
		if rising {
			return TrendDeclining
		}
		return TrendImproving
	case StatusOptimal, StatusNormal:
		if m.Status == StatusOptimal || m.Status == StatusNormal {
			return TrendStable
		}
		return TrendDeclining
	default:
		return TrendUnknown
	}
}

func trendFromStatus(prev, next MetricStatus) Trend {
	rank := func(s MetricStatus) int {
		switch s {
		case StatusOptimal:
			return 4
		case StatusNormal:
			return 3
		case StatusLow, StatusHigh:
			return 2
		case StatusDeficient:
			return 1
		default:
			return 0
		}
	}
	pr, nr := rank(prev), rank(next)
	switch {
	case pr == 0 || nr == 0:
		return TrendUnknown
	case nr > pr:
		return TrendImproving
	case nr < pr:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// TimelineEvent records one extraction or report ingestion for audit
type TimelineEvent struct {
	UserID      uuid.UUID  `json:"user_id"`
	Metric      string     `json:"metric"`
	Description string     `json:"description"`
	Source      DataSource `json:"source"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
