// Package search turns free-text queries into the tokens matched against
// post titles and bodies.
package search

import (
	"strings"
	"unicode"
)

// NoMatchToken stands in for a query with nothing left to search for. No
// stored text contains it.
const NoMatchToken = "\x00inkwell-no-match\x00"

// MaxTokens bounds the number of terms in one query.
const MaxTokens = 8

// StopWords is the set of tokens dropped from queries.
type StopWords map[string]struct{}

// NewStopWords builds a set from words, lower-cased.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether w is a stop word.
func (s StopWords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// Tokens splits query on anything that is not a letter or digit, lower-cases
// the parts and drops stop words and duplicates. A query with nothing left
// yields exactly [NoMatchToken].
func Tokens(query string, stop StopWords) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stop.Contains(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
		if len(tokens) == MaxTokens {
			break
		}
	}

	if len(tokens) == 0 {
		return []string{NoMatchToken}
	}
	return tokens
}

// IsNoMatch reports whether tokens is the degenerate no-match query.
func IsNoMatch(tokens []string) bool {
	return len(tokens) == 1 && tokens[0] == NoMatchToken
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// LikePattern wraps token for a LIKE ... ESCAPE '\' containment match.
func LikePattern(token string) string {
	return "%" + EscapeLike(token) + "%"
}
