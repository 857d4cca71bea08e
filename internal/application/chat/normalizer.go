package chat

import (
	"strings"
	"unicode"
)

// TextNormalizer is the default query preprocessor: lowercases, collapses
// whitespace, strips decorative punctuation, and tags the likely language.
// The normalized form is what classification and cache keying operate on,
// so two queries differing only in casing or spacing share a cache entry.
type TextNormalizer struct{}

// NewTextNormalizer creates a normalizer
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{}
}

// Normalize returns the canonical form of a query and a language tag
func (n *TextNormalizer) Normalize(text string) (string, string) {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '?' || r == '.' || r == ',' || r == '\'' || r == '-' || r == '/':
			// Keep punctuation that carries meaning in queries and units.
			b.WriteRune(r)
			lastSpace = false
		}
	}

	normalized := strings.TrimRight(b.String(), " ?.")
	return normalized, detectLanguage(normalized)
}

// Small marker-word lists; anything unrecognized is tagged English since
// the model prompt handles multilingual input anyway.
var languageMarkers = []struct {
	tag     string
	markers []string
}{
	{"es", []string{" el ", " la ", " que ", " como ", " para ", " por ", "¿"}},
	{"de", []string{" der ", " die ", " das ", " und ", " ich ", " nicht "}},
	{"fr", []string{" le ", " les ", " une ", " est ", " je ", " pour "}},
}

func detectLanguage(text string) string {
	padded := " " + text + " "
	for _, lang := range languageMarkers {
		hits := 0
		for _, m := range lang.markers {
			if strings.Contains(padded, m) {
				hits++
			}
		}
		if hits >= 2 {
			return lang.tag
		}
	}
	return "en"
}
