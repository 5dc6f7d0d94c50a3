package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/id"
	"github.com/quillpost/quill-server/internal/store"
	"github.com/quillpost/quill-server/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEngagementTest creates an engagement service with temporary storage.
func setupEngagementTest(t *testing.T) (*EngagementService, store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "quill-engagement-test-*")
	require.NoError(t, err)

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	svc := NewEngagementService(s, logger)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return svc, s, cleanup
}

// createTestPost inserts a post with fresh timestamps.
func createTestPost(t *testing.T, s store.Store, authorID string) *domain.Post {
	t.Helper()

	postID, err := id.Generate("post")
	require.NoError(t, err)

	post := &domain.Post{
		ID:        postID,
		AuthorID:  authorID,
		Title:     "Test Post",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.CreatePost(context.Background(), post))
	return post
}

func TestEngagement_RecordView(t *testing.T) {
	svc, s, cleanup := setupEngagementTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-1")

	got, err := svc.RecordView(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)

	got, err = svc.RecordView(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
}

func TestEngagement_RecordView_PostNotFound(t *testing.T) {
	svc, _, cleanup := setupEngagementTest(t)
	defer cleanup()

	_, err := svc.RecordView(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrPostNotFound)
}

func TestEngagement_LikeUnlike(t *testing.T) {
	svc, s, cleanup := setupEngagementTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-author")

	got, err := svc.Like(ctx, post.ID, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	liked, err := svc.IsLiked(ctx, post.ID, "member-1")
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := svc.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err = svc.Unlike(ctx, post.ID, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)

	liked, err = svc.IsLiked(ctx, post.ID, "member-1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestEngagement_Like_Duplicate(t *testing.T) {
	svc, s, cleanup := setupEngagementTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-author")

	_, err := svc.Like(ctx, post.ID, "member-1")
	require.NoError(t, err)

	_, err = svc.Like(ctx, post.ID, "member-1")
	assert.ErrorIs(t, err, store.ErrAlreadyLiked)

	// Two different members may like the same post.
	got, err := svc.Like(ctx, post.ID, "member-2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikeCount)
}

func TestEngagement_Unlike_NotLiked(t *testing.T) {
	svc, s, cleanup := setupEngagementTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-author")

	_, err := svc.Unlike(ctx, post.ID, "member-1")
	assert.ErrorIs(t, err, store.ErrLikeNotFound)
}

func TestEngagement_CommentCounters(t *testing.T) {
	svc, s, cleanup := setupEngagementTest(t)
	defer cleanup()
	ctx := context.Background()

	post := createTestPost(t, s, "member-author")

	got, err := svc.CommentAdded(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)

	got, err = svc.CommentRemoved(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentCount)

	// Removing below zero is absorbed.
	got, err = svc.CommentRemoved(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentCount)
}
