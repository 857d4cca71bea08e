package health

import (
	"github.com/vitalroute/v1/internal/domain/health"
)

// MetricPattern describes how one metric is recognized in free text:
// its name synonyms, expected unit, ideal range, and the keywords a model
// response uses to flag a deficiency or elevation. The table also carries
// the typical correction timeline the diet-plan machine consumes.
type MetricPattern struct {
	Metric         string
	Category       health.MetricCategory
	Synonyms       []string
	Unit           string
	IdealRange     *health.IdealRange
	ResolutionDays int
	Recommendation string
}

// metricPatterns is the fixed extraction table. Extraction only stores what
// this table describes; free-text claims outside it are ignored.
var metricPatterns = []MetricPattern{
	{
		Metric:         "vitamin_d",
		Category:       health.CategoryMicronutrient,
		Synonyms:       []string{"vitamin d", "vit d", "25-hydroxyvitamin d", "cholecalciferol"},
		Unit:           "ng/mL",
		IdealRange:     &health.IdealRange{Min: 30, Max: 100, Unit: "ng/mL"},
		ResolutionDays: 90,
		Recommendation: "increase sun exposure and consider vitamin D rich foods like fatty fish",
	},
	{
		Metric:         "vitamin_b12",
		Category:       health.CategoryMicronutrient,
		Synonyms:       []string{"vitamin b12", "b12", "cobalamin"},
		Unit:           "pg/mL",
		IdealRange:     &health.IdealRange{Min: 300, Max: 900, Unit: "pg/mL"},
		ResolutionDays: 60,
		Recommendation: "add B12 sources such as eggs, dairy, and fortified cereals",
	},
	{
		Metric:         "iron",
		Category:       health.CategoryMicronutrient,
		Synonyms:       []string{"iron", "ferritin", "serum iron"},
		Unit:           "ng/mL",
		IdealRange:     &health.IdealRange{Min: 30, Max: 300, Unit: "ng/mL"},
		ResolutionDays: 60,
		Recommendation: "pair iron-rich foods like lentils and spinach with vitamin C",
	},
	{
		Metric:         "magnesium",
		Category:       health.CategoryMicronutrient,
		Synonyms:       []string{"magnesium", "mg level"},
		Unit:           "mg/dL",
		IdealRange:     &health.IdealRange{Min: 1.7, Max: 2.2, Unit: "mg/dL"},
		ResolutionDays: 45,
		Recommendation: "add nuts, seeds, and leafy greens to daily meals",
	},
	{
		Metric:         "cholesterol_total",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"total cholesterol", "cholesterol"},
		Unit:           "mg/dL",
		IdealRange:     &health.IdealRange{Min: 125, Max: 200, Unit: "mg/dL"},
		ResolutionDays: 120,
		Recommendation: "reduce saturated fat and increase soluble fiber intake",
	},
	{
		Metric:         "ldl",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"ldl", "ldl cholesterol", "low-density lipoprotein"},
		Unit:           "mg/dL",
		IdealRange:     &health.IdealRange{Min: 0, Max: 100, Unit: "mg/dL"},
		ResolutionDays: 120,
		Recommendation: "favor unsaturated fats and regular aerobic activity",
	},
	{
		Metric:         "hdl",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"hdl", "hdl cholesterol", "high-density lipoprotein"},
		Unit:           "mg/dL",
		IdealRange:     &health.IdealRange{Min: 40, Max: 100, Unit: "mg/dL"},
		ResolutionDays: 120,
		Recommendation: "regular exercise and healthy fats help raise HDL",
	},
	{
		Metric:         "glucose_fasting",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"fasting glucose", "blood glucose", "blood sugar", "glucose"},
		Unit:           "mg/dL",
		IdealRange:     &health.IdealRange{Min: 70, Max: 100, Unit: "mg/dL"},
		ResolutionDays: 90,
		Recommendation: "limit refined carbohydrates and keep meals regular",
	},
	{
		Metric:         "hemoglobin",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"hemoglobin", "haemoglobin", "hgb", "hb level"},
		Unit:           "g/dL",
		IdealRange:     &health.IdealRange{Min: 12, Max: 17.5, Unit: "g/dL"},
		ResolutionDays: 60,
		Recommendation: "iron and B-vitamin rich foods support healthy hemoglobin",
	},
	{
		Metric:         "tsh",
		Category:       health.CategoryBiomarker,
		Synonyms:       []string{"tsh", "thyroid stimulating hormone", "thyroid"},
		Unit:           "mIU/L",
		IdealRange:     &health.IdealRange{Min: 0.4, Max: 4.0, Unit: "mIU/L"},
		ResolutionDays: 90,
		Recommendation: "thyroid values outside range warrant professional follow-up",
	},
	{
		Metric:         "anemia",
		Category:       health.CategoryCondition,
		Synonyms:       []string{"anemia", "anaemia", "iron deficiency anemia"},
		ResolutionDays: 90,
		Recommendation: "an iron-focused diet plan can help correct anemia over time",
	},
	{
		Metric:         "hypertension",
		Category:       health.CategoryCondition,
		Synonyms:       []string{"hypertension", "high blood pressure"},
		ResolutionDays: 120,
		Recommendation: "reduce sodium, manage stress, and maintain regular activity",
	},
}

// deficiencyKeywords mark a metric as below range in model prose
var deficiencyKeywords = []string{
	"deficient", "deficiency", "insufficient", "low", "below normal",
	"below range", "lacking", "depleted",
}

// elevationKeywords mark a metric as above range in model prose
var elevationKeywords = []string{
	"elevated", "high", "above normal", "above range", "excess", "raised",
}

// normalKeywords mark a metric as in range
var normalKeywords = []string{
	"normal", "optimal", "healthy", "within range", "adequate", "sufficient",
}

// PatternFor returns the pattern matching a metric name, or nil
func PatternFor(metric string) *MetricPattern {
	for i := range metricPatterns {
		if metricPatterns[i].Metric == metric {
			return &metricPatterns[i]
		}
	}
	return nil
}
