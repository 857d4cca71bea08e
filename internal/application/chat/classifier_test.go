package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOutOfScope(t *testing.T) {
	classifier := NewScopeClassifier()

	for _, query := range []string{
		"what is the weather today",
		"should i invest in crypto",
		"recommend a good movie for tonight",
	} {
		result := classifier.Classify(query)
		assert.False(t, result.IsInScope, "query %q must be out of scope", query)
		assert.Equal(t, outOfScopeConfidence, result.Confidence)
		assert.Empty(t, result.Domain)
	}
}

func TestClassifyDomains(t *testing.T) {
	classifier := NewScopeClassifier()

	cases := []struct {
		query  string
		domain string
	}{
		{"how much protein and carbs should my diet have", DomainNutrition},
		{"make me a meal plan with breakfast and dinner recipes", DomainMealPlanning},
		{"my blood test shows a vitamin d deficiency", DomainHealthReports},
		{"what workout builds muscle fastest", DomainFitness},
		{"what magnesium supplement dosage is safe", DomainSupplements},
	}
	for _, tc := range cases {
		result := classifier.Classify(tc.query)
		assert.True(t, result.IsInScope, "query %q", tc.query)
		assert.Equal(t, tc.domain, result.Domain, "query %q", tc.query)
	}
}

func TestClassifyWeakMatchKeepsDomainWithFlooredConfidence(t *testing.T) {
	classifier := NewScopeClassifier()

	// A single health-reports keyword is a weak but real signal.
	result := classifier.Classify("can you look at my blood test")
	assert.True(t, result.IsInScope)
	assert.Equal(t, DomainHealthReports, result.Domain)
	assert.Equal(t, floorConfidence, result.Confidence)
}

func TestClassifyUnknownFallsBackToGeneralWellness(t *testing.T) {
	classifier := NewScopeClassifier()

	result := classifier.Classify("hmm interesting question")
	assert.True(t, result.IsInScope)
	assert.Equal(t, DomainGeneralWellness, result.Domain)
	assert.Equal(t, floorConfidence, result.Confidence)
}

func TestClassifierOptions(t *testing.T) {
	classifier := NewScopeClassifier(
		WithOutOfScopeKeywords([]string{"banned"}),
		WithDomainKeywords(map[string][]string{
			DomainFitness: {"pilates"},
		}),
	)

	assert.False(t, classifier.Classify("this is banned territory").IsInScope)
	assert.Equal(t, DomainFitness, classifier.Classify("is pilates good for me").Domain)
}
