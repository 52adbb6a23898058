package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	t.Parallel()

	stop := NewStopWords("the", "a", " OF ")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"lowercases and splits", "Go Concurrency, Patterns!", []string{"go", "concurrency", "patterns"}},
		{"drops stop words", "the art of the deal", []string{"art", "deal"}},
		{"deduplicates", "go GO go", []string{"go"}},
		{"keeps unicode words", "서울 여행", []string{"서울", "여행"}},
		{"empty query", "   ", []string{NoMatchToken}},
		{"only stop words", "The a of", []string{NoMatchToken}},
		{"only punctuation", "%%%___", []string{NoMatchToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.query, stop))
		})
	}
}

func TestTokens_CapsLength(t *testing.T) {
	t.Parallel()
	got := Tokens("a1 a2 a3 a4 a5 a6 a7 a8 a9 a10", nil)
	assert.Len(t, got, MaxTokens)
}

func TestIsNoMatch(t *testing.T) {
	t.Parallel()
	assert.True(t, IsNoMatch(Tokens("", nil)))
	assert.False(t, IsNoMatch([]string{"go"}))
}

func TestLikePattern(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `%100\%%`, LikePattern("100%"))
	assert.Equal(t, `%snake\_case%`, LikePattern("snake_case"))
}
