// Package shared holds the text normalization and phrase matching used by every
// analyzer.
package shared

import (
	"regexp"
	"slices"
	"strings"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, replaces every non-word/non-space character with a
// space, collapses whitespace runs and trims. It is idempotent.
func Normalize(text string) string {
	out := strings.ToLower(text)
	out = nonWordPattern.ReplaceAllString(out, " ")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// ContainsPhrase reports whether the normalized text contains the phrase on word
// boundaries. text must already be normalized; phrase is normalized here.
func ContainsPhrase(text, phrase string) bool {
	p := Normalize(phrase)
	if p == "" || text == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+p+" ")
}

// MatchAny returns the first phrase contained in text, if any.
func MatchAny(text string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if ContainsPhrase(text, p) {
			return p, true
		}
	}
	return "", false
}

// ContainsAny reports whether text contains at least one of the phrases.
func ContainsAny(text string, phrases []string) bool {
	_, ok := MatchAny(text, phrases)
	return ok
}

// CountPhrases counts phrase occurrences in text, matching whole words at every
// word position. Adjacent occurrences are each counted.
func CountPhrases(text string, phrases []string) int {
	words := strings.Fields(text)
	total := 0
	for _, p := range phrases {
		pw := strings.Fields(Normalize(p))
		if len(pw) == 0 {
			continue
		}
		for i := 0; i+len(pw) <= len(words); i++ {
			if slices.Equal(words[i:i+len(pw)], pw) {
				total++
			}
		}
	}
	return total
}

// StartsWithAny reports whether the normalized text begins with one of the phrases.
func StartsWithAny(text string, phrases []string) bool {
	padded := text + " "
	for _, p := range phrases {
		n := Normalize(p)
		if n != "" && strings.HasPrefix(padded, n+" ") {
			return true
		}
	}
	return false
}
