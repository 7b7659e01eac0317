package narrative

import (
	"strings"
)

// bannedPhrases are vague filler phrases the teacher's critique prompt
// flags as non-specific ("vagueness detection with explicit banned-word
// list"), generalized here into a plain validator rather than a further
// LLM round trip.
var bannedPhrases = []string{
	"in today's fast-paced world",
	"game changer",
	"game-changer",
	"it remains to be seen",
	"only time will tell",
	"at the end of the day",
	"paradigm shift",
	"in this digest",
	"this week's articles",
}

// validateTheme checks a generated theme label against the spec's
// constraints: non-empty, short (<=6 words), and free of banned filler.
func validateTheme(theme string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return errEmptyTheme
	}
	if wordCount(theme) > 6 {
		return errThemeTooLong
	}
	if containsBanned(theme) {
		return errBannedPhrase
	}
	return nil
}

// validateIntro checks a generated intro paragraph: non-empty, within the
// sentence/word budget, and free of banned filler.
func validateIntro(intro string, maxWords, maxSentences int) error {
	intro = strings.TrimSpace(intro)
	if intro == "" {
		return errEmptyIntro
	}
	if containsBanned(intro) {
		return errBannedPhrase
	}
	if wordCount(intro) > maxWords {
		return errIntroTooLong
	}
	if sentenceCount(intro) > maxSentences {
		return errTooManySentences
	}
	return nil
}

func containsBanned(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func sentenceCount(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return count
}

// truncateToSentence truncates text to at most maxWords words, then trims
// back to the last complete sentence boundary and re-terminates it, the
// same normalize-then-truncate-then-reterminate approach the teacher's
// weekly digest summary trimmer uses.
func truncateToSentence(text string, maxWords int) string {
	fields := strings.Fields(text)
	if len(fields) <= maxWords {
		return text
	}
	truncated := strings.Join(fields[:maxWords], " ")

	lastStop := -1
	for i, r := range truncated {
		if r == '.' || r == '!' || r == '?' {
			lastStop = i
		}
	}
	if lastStop > 0 {
		return truncated[:lastStop+1]
	}
	return strings.TrimRight(truncated, ",;:") + "."
}
