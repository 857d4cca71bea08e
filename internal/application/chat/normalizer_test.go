package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCanonicalizesCaseAndWhitespace(t *testing.T) {
	n := NewTextNormalizer()

	a, _ := n.Normalize("What Is My   Vitamin D Level?")
	b, _ := n.Normalize("what is my vitamin d level")
	assert.Equal(t, b, a, "case and spacing variants must share a normal form")
}

func TestNormalizeStripsDecorations(t *testing.T) {
	n := NewTextNormalizer()

	normalized, _ := n.Normalize("  hello!!  world***  ")
	assert.Equal(t, "hello world", normalized)
}

func TestNormalizeKeepsMeaningfulPunctuation(t *testing.T) {
	n := NewTextNormalizer()

	normalized, _ := n.Normalize("my level is 18.5 ng/mL")
	assert.Contains(t, normalized, "18.5")
	assert.Contains(t, normalized, "ng/ml")
}

func TestDetectLanguage(t *testing.T) {
	n := NewTextNormalizer()

	_, tag := n.Normalize("what should I eat today")
	assert.Equal(t, "en", tag)

	_, tag = n.Normalize("que debo comer para la cena")
	assert.Equal(t, "es", tag)
}
