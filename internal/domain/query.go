package domain

import "regexp"

// CompileSearchQuery turns a validated query into a regular expression.
// Literal patterns are quoted; whole-word wraps the pattern in word
// boundaries; case-insensitive prefixes (?i). An invalid user regex is a
// ValidationError, surfaced before any index access.
func CompileSearchQuery(query SearchQuery) (*regexp.Regexp, error) {
	pattern := query.Pattern
	if !query.IsRegex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if query.WholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if !query.CaseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ValidationError{Field: "pattern", Reason: err.Error()}
	}
	return re, nil
}
