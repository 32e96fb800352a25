package attribute

import "github.com/agnivade/levenshtein"

const suggestMaxDistance = 2

// SuggestKey returns the well-known key closest to key when key itself is not
// recognised but is within a couple of edits of one, e.g. a misspelled custom
// attribute. It returns "" otherwise.
func SuggestKey(key string) string {
	if key == "" {
		return ""
	}
	best, bestDist := "", suggestMaxDistance+1
	for _, known := range WellKnownKeys() {
		if known == key {
			return ""
		}
		if d := levenshtein.ComputeDistance(key, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}
