package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits source text and identifiers into index terms. Identifiers
// are expanded into their camelCase and snake_case sub-tokens so that a query
// for "parse" matches parseConfig and parse_config alike.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		minLen:    2,
	}
}

// Tokenize splits text into lowercase terms, including identifier sub-tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		for _, sub := range splitIdentifier(word) {
			sub = strings.ToLower(sub)
			if len(sub) < t.minLen {
				continue
			}
			if _, isStop := t.stopwords[sub]; isStop {
				continue
			}
			tokens = append(tokens, sub)
		}
		// Keep the whole identifier too so exact-name queries rank highest.
		if strings.Contains(word, "_") || isCamel(word) {
			whole := strings.ToLower(word)
			if len(whole) >= t.minLen {
				tokens = append(tokens, whole)
			}
		}
	}

	return tokens
}

// TokenizeIdentifiers tokenizes an extracted identifier list.
func (t *Tokenizer) TokenizeIdentifiers(identifiers []string) []string {
	if len(identifiers) == 0 {
		return nil
	}
	return t.Tokenize(strings.Join(identifiers, " "))
}

// splitWords splits text into words on unicode boundaries, keeping '_' so
// snake_case identifiers survive as single words.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// splitIdentifier breaks a word at '_' and lower-to-upper case transitions.
func splitIdentifier(word string) []string {
	var parts []string
	var current strings.Builder
	var prev rune

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, r := range word {
		switch {
		case r == '_':
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	flush()

	return parts
}

func isCamel(word string) bool {
	hasLower := false
	for _, r := range word {
		if unicode.IsLower(r) {
			hasLower = true
		} else if unicode.IsUpper(r) && hasLower {
			return true
		}
	}
	return false
}

// defaultStopwords returns common English words that carry no signal in code
// comments or prose.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "or", "so", "no", "can",
		"do", "does", "did", "been", "would", "could", "should",
		"which", "what", "when", "where", "how", "all", "each",
		"other", "some", "such", "than", "too", "very", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
