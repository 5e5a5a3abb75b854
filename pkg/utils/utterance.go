package utils

import (
	"strings"
	"unicode"
)

// MaxUtteranceRunes caps how much free text a single turn may carry.
const MaxUtteranceRunes = 2000

// NormalizeUtterance trims a user reply, drops control characters, collapses
// runs of whitespace to a single space and truncates to MaxUtteranceRunes.
func NormalizeUtterance(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	count := 0
	pendingSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			if count+1 >= MaxUtteranceRunes {
				break
			}
			b.WriteRune(' ')
			count++
			pendingSpace = false
		}
		if count >= MaxUtteranceRunes {
			break
		}
		b.WriteRune(r)
		count++
	}

	return b.String()
}

// ContainsAny reports whether the lowercased input contains any of the tokens.
func ContainsAny(input string, tokens []string) bool {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return false
	}
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}
