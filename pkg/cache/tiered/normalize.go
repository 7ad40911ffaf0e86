package tiered

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// HangulSyllables is the precomposed Hangul block (U+AC00..U+D7A3).
var HangulSyllables = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xAC00, Hi: 0xD7A3, Stride: 1}},
}

// Normalize folds text into its cache key form: NFKC, lowercase, only ASCII
// word characters plus runes from scripts survive, whitespace collapsed.
func Normalize(text string, scripts ...*unicode.RangeTable) string {
	folded := strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case isASCIIWord(r) || (len(scripts) > 0 && unicode.In(r, scripts...)):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

func isASCIIWord(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// PatternKey derives the L2/L3 key from normalized text: the three longest
// words of more than two runes, sorted and joined.
func PatternKey(normalized string) string {
	var words []string
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) > 2 {
			words = append(words, w)
		}
	}
	slices.SortStableFunc(words, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	if len(words) > 3 {
		words = words[:3]
	}
	slices.Sort(words)
	return "pattern_" + strings.Join(words, "_")
}

// Jaccard returns |A∩B| / |A∪B| over the whitespace token sets of a and b.
func Jaccard(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	left := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		left[w] = struct{}{}
	}
	union := len(left)
	inter := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := left[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
