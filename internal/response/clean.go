package response

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxSentences = 2
	maxChars     = 220
	ellipsis     = "…"
)

var (
	bulletPattern         = regexp.MustCompile(`^\s*(?:[-*•+]+|\d+[.)])\s+`)
	stageDirectionPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	emphasisPattern       = regexp.MustCompile("\\*+|`+|__+|~~")
	spacesPattern         = regexp.MustCompile(`\s+`)
	spaceBeforePunct      = regexp.MustCompile(`\s+([,.!?;:])`)
	reciprocalTailPattern = regexp.MustCompile(`(?i)[\s,;:-]*(?:(?:what|how) about (?:you|yourself|your team|your side)|and you|(?:do|have) you (?:ever )?(?:had|seen) (?:that|the same|something similar))\s*\?+\s*$`)
)

// Clean keeps generated dialogue short and spoken: no list markers, stage
// directions, markdown or questions bounced back to the trainee, and at most
// two sentences within roughly 220 characters.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = bulletPattern.ReplaceAllString(line, "")
	}
	out := strings.Join(lines, " ")
	out = stageDirectionPattern.ReplaceAllString(out, " ")
	out = emphasisPattern.ReplaceAllString(out, "")
	out = collapse(out)
	out = reciprocalTailPattern.ReplaceAllString(out, "")
	out = strings.TrimRight(collapse(out), ",;:- ")
	if out == "" {
		return ""
	}
	if last := []rune(out)[len([]rune(out))-1]; unicode.IsLetter(last) || unicode.IsDigit(last) {
		out += "."
	}
	out = firstSentences(out, maxSentences)
	return capLength(out, maxChars)
}

func collapse(s string) string {
	s = spacesPattern.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// sentenceEnds returns the rune offsets just past each sentence terminator.
func sentenceEnds(runes []rune) []int {
	var ends []int
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			ends = append(ends, j+1)
		}
		i = j
	}
	return ends
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func firstSentences(s string, n int) string {
	runes := []rune(s)
	ends := sentenceEnds(runes)
	if len(ends) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:ends[n-1]]))
}

func capLength(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := 0
	for _, end := range sentenceEnds(runes) {
		if end <= limit {
			cut = end
		}
	}
	if cut > 0 {
		return strings.TrimSpace(string(runes[:cut]))
	}
	head := string(runes[:limit-1])
	if i := strings.LastIndexByte(head, ' '); i > 0 {
		head = head[:i]
	}
	return strings.TrimRight(head, ",;:- ") + ellipsis
}
