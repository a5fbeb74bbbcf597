package domain

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNormalizedTitleLen caps grouping keys so near-identical long titles
// with trailing boilerplate still collide.
const maxNormalizedTitleLen = 100

// stripMarks decomposes to NFD and removes combining marks, which strips
// every Vietnamese diacritic vowel (à á ả ã ạ â ă ê ô ơ ư and friends).
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics strips Vietnamese diacritics from s. đ/Đ carry no combining
// mark, so they are mapped to d/D explicitly after decomposition.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, out)
}

// FoldKey lowercases and strips diacritics, the common form used for all
// gazetteer and title matching.
func FoldKey(s string) string {
	return strings.ToLower(FoldDiacritics(s))
}

// NormalizeTitle produces the canonical grouping key for a title: folded
// lowercase, only letters/digits and single inter-word spaces, at most
// maxNormalizedTitleLen characters. Returns "" for unusable titles.
func NormalizeTitle(title string) string {
	folded := FoldKey(title)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	t := strings.Join(strings.Fields(b.String()), " ")
	if len(t) > maxNormalizedTitleLen {
		t = strings.TrimSpace(t[:maxNormalizedTitleLen])
	}
	return t
}

// TitleSimilarity returns a [0,1] ratio similarity between two already
// normalized titles: 1 − editDistance/maxLen. Two empty titles are not
// considered similar; there is nothing to compare.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
