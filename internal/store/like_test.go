package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/quillpost/quill-server/internal/store"
	"github.com/stretchr/testify/require"
)

func TestLike_Success(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-1")))
	require.NoError(t, s.LikePost(ctx, "post-1", "member-1"))

	liked, err := s.IsLiked(ctx, "post-1", "member-1")
	require.NoError(t, err)
	require.True(t, liked)

	count, err := s.CountLikes(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	post, err := s.GetPost(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, 1, post.LikeCount)
}

func TestLike_Duplicate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-1")))
	require.NoError(t, s.LikePost(ctx, "post-1", "member-1"))

	err := s.LikePost(ctx, "post-1", "member-1")
	require.ErrorIs(t, err, store.ErrAlreadyLiked)

	// Counter untouched by the rejected duplicate.
	post, err := s.GetPost(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, 1, post.LikeCount)
}

func TestLike_PostNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	err := s.LikePost(context.Background(), "missing", "member-1")
	require.ErrorIs(t, err, store.ErrPostNotFound)
}

func TestUnlike_Success(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-1")))
	require.NoError(t, s.LikePost(ctx, "post-1", "member-1"))
	require.NoError(t, s.UnlikePost(ctx, "post-1", "member-1"))

	liked, err := s.IsLiked(ctx, "post-1", "member-1")
	require.NoError(t, err)
	require.False(t, liked)

	post, err := s.GetPost(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, 0, post.LikeCount)

	// The pair may like again after unliking.
	require.NoError(t, s.LikePost(ctx, "post-1", "member-1"))
}

func TestUnlike_NotLiked(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-1")))
	err := s.UnlikePost(ctx, "post-1", "member-1")
	require.ErrorIs(t, err, store.ErrLikeNotFound)
}

func TestLike_ConcurrentMembers(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-viral")))

	const members = 50

	var wg sync.WaitGroup
	errCh := make(chan error, members)
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.LikePost(ctx, "post-viral", fmt.Sprintf("member-%03d", n)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	// Ledger and counter must agree exactly.
	count, err := s.CountLikes(ctx, "post-viral")
	require.NoError(t, err)
	require.Equal(t, members, count)

	post, err := s.GetPost(ctx, "post-viral")
	require.NoError(t, err)
	require.Equal(t, members, post.LikeCount)
}

func TestLike_ConcurrentDuplicates(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreatePost(ctx, testPost("post-1")))

	const attempts = 10

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.LikePost(ctx, "post-1", "member-1")
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, store.ErrAlreadyLiked), "unexpected error: %v", err)
	}
	require.Equal(t, 1, ok, "exactly one like should land")

	post, err := s.GetPost(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, 1, post.LikeCount)
}
