package hirezzie

import (
	"strconv"
	"strings"
	"unicode"
)

// wordSet splits lowercased text into a set of words.
func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// containsAllWords reports whether every word of phrase is in set.
// An empty phrase matches nothing.
func containsAllWords(set map[string]bool, phrase string) bool {
	words := wordSet(phrase)
	if len(words) == 0 {
		return false
	}
	for w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}

// containsPhrase reports whether the lowercased text contains phrase verbatim
// (whitespace-normalised).
func containsPhrase(text, phrase string) bool {
	p := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	if p == "" {
		return false
	}
	return strings.Contains(strings.Join(strings.Fields(text), " "), p)
}

// parseFloatPrefix parses s as a float, returning 0 when it is not a number.
func parseFloatPrefix(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
