package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// similarityThreshold is the minimum 1 - distance/longer-length at which
	// an edit-distance candidate is accepted.
	similarityThreshold = 0.7
	// minPrefixLen guards the prefix rule against one- and two-letter names.
	minPrefixLen = 3
)

// closestMatch picks a correction for attempted among candidates, trying in
// order: a case-insensitive exact match, the most similar name by edit
// distance, then a name that attempted is a prefix of (or the reverse).
// Ties go to the earlier candidate.
func closestMatch(attempted string, candidates []string) (string, bool) {
	if attempted == "" || len(candidates) == 0 {
		return "", false
	}
	lower := strings.ToLower(attempted)
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
		if lowered[i] == lower {
			return c, true
		}
	}

	best, bestScore := -1, 0.0
	for i, c := range lowered {
		if s := similarity(lower, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 && bestScore >= similarityThreshold {
		return candidates[best], true
	}

	if utf8.RuneCountInString(attempted) < minPrefixLen {
		return "", false
	}
	for i, c := range lowered {
		if strings.HasPrefix(c, lower) || (utf8.RuneCountInString(c) >= minPrefixLen && strings.HasPrefix(lower, c)) {
			return candidates[i], true
		}
	}
	return "", false
}

func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
