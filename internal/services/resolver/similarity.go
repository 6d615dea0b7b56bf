package resolver

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Similarity scores how alike two strings are, in [0, 1].
// Pluggable so the matching heuristic can be swapped without touching
// the resolver's control flow.
type Similarity interface {
	Score(a, b string) float64
}

// TokenJaccard is the default strategy: token-set Jaccard similarity over
// normalized strings. Word order and duplicates are ignored, which suits
// titles like "Track (feat. X)" vs "Track feat. X".
type TokenJaccard struct{}

// Score returns |A ∩ B| / |A ∪ B| over the normalized token sets
func (TokenJaccard) Score(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// JaroWinkler is the alternate strategy, backed by adrg/strutil.
// Better at catching small spelling variations than token Jaccard.
type JaroWinkler struct {
	metric *metrics.JaroWinkler
}

// NewJaroWinkler creates the strutil-backed strategy
func NewJaroWinkler() *JaroWinkler {
	return &JaroWinkler{metric: metrics.NewJaroWinkler()}
}

// Score returns the Jaro-Winkler similarity of the normalized strings
func (j *JaroWinkler) Score(a, b string) float64 {
	return strutil.Similarity(Normalize(a), Normalize(b), j.metric)
}

// Normalize lower-cases, strips punctuation and collapses whitespace
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Normalize(s)) {
		set[tok] = struct{}{}
	}
	return set
}
