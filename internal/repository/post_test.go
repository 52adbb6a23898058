package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/search"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{Title: "Test Post", Content: "Content", WriterID: 1, CategoryID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Create(context.Background(), post))
	assert.EqualValues(t, 1, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_SearchNoMatchSkipsDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	posts, err := repo.Search(context.Background(), search.Tokens("the", search.NewStopWords("the")), 10, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListIncludesFlaggedWithCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	writer := seedUser(t, db, "writer")
	reader := seedUser(t, db, "reader")
	travel := seedCategory(t, db, "travel")
	food := seedCategory(t, db, "food")

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older := seedPost(t, db, writer, travel, "Kyoto", "temples", base)
	newer := seedPost(t, db, writer, food, "Ramen", "noodles", base.Add(time.Hour))
	require.NoError(t, repo.SetDeleted(ctx, older.ID, true))

	require.NoError(t, db.Create(&models.Comment{Content: "nice", WriterID: reader.ID, PostID: newer.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{Content: "gone", WriterID: reader.ID, PostID: newer.ID, IsDeleted: true}).Error)
	liked, count, err := repo.ToggleLike(ctx, reader.ID, newer.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	posts, total, err := repo.List(ctx, PostFilter{}, 10, 0, reader.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)

	assert.Equal(t, newer.ID, posts[0].ID, "newest first")
	assert.EqualValues(t, 1, posts[0].LikeCount)
	assert.EqualValues(t, 1, posts[0].CommentCount, "flagged comments are not counted")
	assert.True(t, posts[0].Liked)
	assert.Equal(t, "writer", posts[0].Writer.Name)
	assert.Equal(t, "food", posts[0].Category.Slug)

	assert.True(t, posts[1].IsDeleted, "flagged posts stay in the listing")
	assert.False(t, posts[1].Liked)

	anon, _, err := repo.List(ctx, PostFilter{}, 10, 0, 0)
	require.NoError(t, err)
	assert.False(t, anon[0].Liked)

	byCategory, total, err := repo.List(ctx, PostFilter{CategoryID: travel.ID}, 10, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, older.ID, byCategory[0].ID)

	visible, total, err := repo.List(ctx, PostFilter{WriterID: writer.ID, VisibleOnly: true}, 10, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, newer.ID, visible[0].ID)
}

func TestPostRepository_ToggleLikeTwiceRestoresState(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	writer := seedUser(t, db, "writer")
	other := seedUser(t, db, "other")
	post := seedPost(t, db, writer, seedCategory(t, db, "misc"), "t", "c", time.Now().UTC())

	_, _, err := repo.ToggleLike(ctx, other.ID, post.ID)
	require.NoError(t, err)

	before, err := repo.GetByID(ctx, post.ID, writer.ID)
	require.NoError(t, err)

	liked, count, err := repo.ToggleLike(ctx, writer.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 2, count)

	liked, count, err = repo.ToggleLike(ctx, writer.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, before.LikeCount, count)
	assert.Equal(t, before.Liked, liked)
}

func TestPostRepository_Search(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	writer := seedUser(t, db, "writer")
	gone := seedUser(t, db, "gone")
	cat := seedCategory(t, db, "tech")
	now := time.Now().UTC()

	both := seedPost(t, db, writer, cat, "Go concurrency", "Channels and goroutines", now)
	seedPost(t, db, writer, cat, "Go generics", "Type parameters", now)
	flagged := seedPost(t, db, writer, cat, "Go channels deleted", "channels", now)
	seedPost(t, db, gone, cat, "Go channels by a withdrawn writer", "channels", now)
	require.NoError(t, repo.SetDeleted(ctx, flagged.ID, true))
	withdrawnAt(t, db, gone, now)

	posts, err := repo.Search(ctx, search.Tokens("GO channels", nil), 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1, "every token must match and hidden posts are excluded")
	assert.Equal(t, both.ID, posts[0].ID)

	posts, err = repo.Search(ctx, []string{search.NoMatchToken}, 10, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = repo.Search(ctx, []string{"%"}, 10, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts, "wildcards in a token match literally")
}

func TestPostRepository_StampsAndCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	writer := seedUser(t, db, "writer")
	cat := seedCategory(t, db, "diary")
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	seedPost(t, db, writer, cat, "old", "c", now.AddDate(-2, 0, 0))
	seedPost(t, db, writer, cat, "recent", "c", now.AddDate(0, 0, -3))
	hidden := seedPost(t, db, writer, cat, "hidden", "c", now.AddDate(0, 0, -2))
	require.NoError(t, repo.SetDeleted(ctx, hidden.ID, true))

	stamps, err := repo.Stamps(ctx, writer.ID, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	require.Len(t, stamps, 1)
	assert.True(t, stamps[0].CreatedAt.Equal(now.AddDate(0, 0, -3)))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, ContentCounts{Total: 3, Deleted: 1}, counts)

	assert.ErrorIs(t, repo.SetDeleted(ctx, 999, true), models.ErrNotFound)
	_, err = repo.GetByID(ctx, 999, 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostRepository_ModerationFlagKeepsEditTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	writer := seedUser(t, db, "writer")
	written := time.Now().UTC().AddDate(0, 0, -3).Truncate(time.Second)
	post := seedPost(t, db, writer, seedCategory(t, db, "misc"), "t", "c", written)

	require.NoError(t, repo.SetDeleted(ctx, post.ID, true))
	require.NoError(t, repo.SetDeleted(ctx, post.ID, false))

	got, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	assert.True(t, got.UpdatedAt.Equal(written), "got %v", got.UpdatedAt)

	stamps, err := repo.Stamps(ctx, writer.ID, written.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, stamps, 1)
	assert.True(t, stamps[0].UpdatedAt.Equal(stamps[0].CreatedAt), "a delete and restore is not an update day")
}
