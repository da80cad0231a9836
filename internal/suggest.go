package internal

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// KeyLister is implemented by ContextAccessor so lookup failures can
// offer "did you mean?" suggestions drawn from the variables actually
// in scope (spec section 7.3).
type KeyLister interface {
	Keys() []string
}

// FindSimilarStrings ranks candidates by edit distance to target and
// returns up to maxSuggestions of the closest ones within a sane
// threshold, closest first.
func FindSimilarStrings(target string, candidates []string, maxSuggestions int) []string {
	if len(candidates) == 0 || maxSuggestions <= 0 {
		return nil
	}

	maxDistance := len(target) / 2
	if maxDistance < 2 {
		maxDistance = 2
	}

	type scored struct {
		str      string
		distance int
	}

	var similar []scored
	targetLower := strings.ToLower(target)
	for _, candidate := range candidates {
		dist := levenshtein.ComputeDistance(targetLower, strings.ToLower(candidate))
		if dist <= maxDistance {
			similar = append(similar, scored{str: candidate, distance: dist})
		}
	}

	for i := 0; i < len(similar)-1; i++ {
		for j := i + 1; j < len(similar); j++ {
			if similar[j].distance < similar[i].distance {
				similar[i], similar[j] = similar[j], similar[i]
			}
		}
	}

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(similar) && i < maxSuggestions; i++ {
		result = append(result, similar[i].str)
	}
	return result
}

// FormatSuggestions renders suggestions as a human-readable clause,
// e.g. ". Did you mean 'name' or 'named'?".
func FormatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	if len(suggestions) == 1 {
		return ". Did you mean '" + suggestions[0] + "'?"
	}

	var sb strings.Builder
	sb.WriteString(". Did you mean ")
	for i, s := range suggestions {
		if i > 0 {
			if i == len(suggestions)-1 {
				sb.WriteString(" or ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteByte('\'')
		sb.WriteString(s)
		sb.WriteByte('\'')
	}
	sb.WriteByte('?')
	return sb.String()
}

// ExtractPathPrefix returns the first dot-separated segment of path.
func ExtractPathPrefix(path string) string {
	idx := strings.Index(path, ".")
	if idx == -1 {
		return path
	}
	return path[:idx]
}

// FormatAvailableKeys renders up to maxKeys of keys as a human-readable
// clause, noting how many more were omitted.
func FormatAvailableKeys(keys []string, maxKeys int) string {
	if len(keys) == 0 {
		return ""
	}
	if maxKeys <= 0 {
		maxKeys = 5
	}

	var sb strings.Builder
	sb.WriteString(". Available keys: ")

	displayCount := len(keys)
	if displayCount > maxKeys {
		displayCount = maxKeys
	}
	for i := 0; i < displayCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('\'')
		sb.WriteString(keys[i])
		sb.WriteByte('\'')
	}

	remaining := len(keys) - displayCount
	if remaining > 0 {
		sb.WriteString(" (")
		sb.WriteString(strconv.Itoa(remaining))
		sb.WriteString(" more)")
	}
	return sb.String()
}
