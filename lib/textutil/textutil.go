package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases name and drops all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// BestMatch returns the index of the candidate most similar to target and
// its similarity, an exact match after normalization always wins. -1 means
// there were no candidates.
func BestMatch(target string, candidates []string) (int, float64) {
	target = NormalizeName(target)

	best := -1
	var bestSimilarity float64
	for i, candidate := range candidates {
		candidate = NormalizeName(candidate)
		if candidate == target {
			return i, 1
		}
		similarity := matchr.JaroWinkler(target, candidate, false)
		if best < 0 || similarity > bestSimilarity {
			best = i
			bestSimilarity = similarity
		}
	}
	return best, bestSimilarity
}
