package narrative

import "errors"

var (
	errEmptyTheme       = errors.New("narrative: theme is empty")
	errThemeTooLong     = errors.New("narrative: theme exceeds word budget")
	errEmptyIntro       = errors.New("narrative: intro is empty")
	errIntroTooLong     = errors.New("narrative: intro exceeds word budget")
	errTooManySentences = errors.New("narrative: intro exceeds sentence budget")
	errBannedPhrase     = errors.New("narrative: contains a banned vague phrase")
)
