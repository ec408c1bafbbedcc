package sql

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// MaxSuggestions is the number of "did you mean" candidates returned.
const MaxSuggestions = 3

// maxSuggestionDistance is the largest edit distance still considered a
// plausible typo of the input.
const maxSuggestionDistance = 5

// SuggestColumns ranks known column names by edit distance from the input
// and returns the closest few. Used to build "did you mean" hints when a
// syntactically valid column is absent from the catalog; suggestions are
// never offered for syntactically invalid input.
func SuggestColumns(input string, known []string) []string {
	type candidate struct {
		name string
		dist int
	}

	lowered := strings.ToLower(input)
	candidates := make([]candidate, 0, len(known))
	for _, name := range known {
		dist := levenshtein.Distance(lowered, strings.ToLower(name), nil)
		if dist <= maxSuggestionDistance {
			candidates = append(candidates, candidate{name: name, dist: dist})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	n := len(candidates)
	if n > MaxSuggestions {
		n = MaxSuggestions
	}
	result := make([]string, 0, n)
	for _, c := range candidates[:n] {
		result = append(result, c.name)
	}
	return result
}
