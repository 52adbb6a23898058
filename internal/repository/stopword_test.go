package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopWordRepository_AddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewStopWordRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "The", "a", " the ", ""))
	require.NoError(t, repo.Add(ctx, "of", "a"))

	words, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "of", "the"}, words)
}
