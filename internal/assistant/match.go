package assistant

import (
	"regexp"
	"strings"
)

const punctuation = ".,!?;:\"'"

var (
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}]+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// normalize lower-cases and trims an utterance.
func normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}

// containsAny reports whether s contains any needle as a plain substring.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func equalsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// containsTokens reports whether phrase occurs in tokens as a contiguous run
// of whole words.
func containsTokens(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// containsWord reports whether any keyword occurs in s on word boundaries.
func containsWord(s string, keywords []string) bool {
	tokens := tokenize(s)
	for _, k := range keywords {
		if containsTokens(tokens, tokenize(k)) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func trimPunctuation(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), punctuation))
}
