package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/quillpost/quill-server/internal/store"
)

func TestLikePost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-1", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	if err := s.LikePost(ctx, "post-1", "member-1"); err != nil {
		t.Fatalf("LikePost: %v", err)
	}

	liked, err := s.IsLiked(ctx, "post-1", "member-1")
	if err != nil {
		t.Fatalf("IsLiked: %v", err)
	}
	if !liked {
		t.Error("expected IsLiked=true after LikePost")
	}

	// Ledger row and counter move together.
	count, err := s.CountLikes(ctx, "post-1")
	if err != nil {
		t.Fatalf("CountLikes: %v", err)
	}
	if count != 1 {
		t.Errorf("CountLikes: got %d, want 1", count)
	}

	post, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.LikeCount != 1 {
		t.Errorf("LikeCount: got %d, want 1", post.LikeCount)
	}
}

func TestLikePost_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-1", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := s.LikePost(ctx, "post-1", "member-1"); err != nil {
		t.Fatalf("LikePost: %v", err)
	}

	err := s.LikePost(ctx, "post-1", "member-1")
	if !errors.Is(err, store.ErrAlreadyLiked) {
		t.Errorf("expected ErrAlreadyLiked, got %v", err)
	}

	// The rejected duplicate must not have touched the counter.
	post, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.LikeCount != 1 {
		t.Errorf("LikeCount after duplicate: got %d, want 1", post.LikeCount)
	}
}

func TestLikePost_PostNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.LikePost(ctx, "no-such-post", "member-1")
	if !errors.Is(err, store.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestUnlikePost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-1", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := s.LikePost(ctx, "post-1", "member-1"); err != nil {
		t.Fatalf("LikePost: %v", err)
	}

	if err := s.UnlikePost(ctx, "post-1", "member-1"); err != nil {
		t.Fatalf("UnlikePost: %v", err)
	}

	liked, err := s.IsLiked(ctx, "post-1", "member-1")
	if err != nil {
		t.Fatalf("IsLiked: %v", err)
	}
	if liked {
		t.Error("expected IsLiked=false after UnlikePost")
	}

	post, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.LikeCount != 0 {
		t.Errorf("LikeCount: got %d, want 0", post.LikeCount)
	}

	// Like again after unlike is allowed.
	if err := s.LikePost(ctx, "post-1", "member-1"); err != nil {
		t.Fatalf("re-LikePost: %v", err)
	}
}

func TestUnlikePost_NotLiked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-1", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	err := s.UnlikePost(ctx, "post-1", "member-1")
	if !errors.Is(err, store.ErrLikeNotFound) {
		t.Errorf("expected ErrLikeNotFound, got %v", err)
	}
}

func TestUnlikePost_PostNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UnlikePost(ctx, "no-such-post", "member-1")
	if !errors.Is(err, store.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestLikePost_ConcurrentMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-viral", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	const members = 100

	var wg sync.WaitGroup
	errCh := make(chan error, members)
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			memberID := fmt.Sprintf("member-%03d", n)
			if err := s.LikePost(ctx, "post-viral", memberID); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent LikePost: %v", err)
	}

	count, err := s.CountLikes(ctx, "post-viral")
	if err != nil {
		t.Fatalf("CountLikes: %v", err)
	}
	if count != members {
		t.Errorf("CountLikes: got %d, want %d", count, members)
	}

	post, err := s.GetPost(ctx, "post-viral")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.LikeCount != members {
		t.Errorf("LikeCount: got %d, want %d (counter diverged from ledger)",
			post.LikeCount, members)
	}
}

func TestLikePost_ConcurrentDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, makeTestPost("post-1", "member-author")); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	// Same member racing itself: exactly one like lands.
	const attempts = 20

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

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrAlreadyLiked):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful likes: got %d, want 1", ok)
	}
	if dup != attempts-1 {
		t.Errorf("duplicate rejections: got %d, want %d", dup, attempts-1)
	}

	post, err := s.GetPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.LikeCount != 1 {
		t.Errorf("LikeCount: got %d, want 1", post.LikeCount)
	}
}
