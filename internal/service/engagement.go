package service

import (
	"context"
	"log/slog"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/store"
)

// EngagementService orchestrates the per-post engagement counters and the
// like ledger. All counter movement happens inside the store's atomic
// operations; this layer never computes a counter value itself.
type EngagementService struct {
	store  store.Store
	logger *slog.Logger
}

// NewEngagementService creates a new engagement service.
func NewEngagementService(store store.Store, logger *slog.Logger) *EngagementService {
	return &EngagementService{
		store:  store,
		logger: logger,
	}
}

// RecordView bumps a post's view counter and returns the post with the
// updated count. Returns store.ErrPostNotFound for an unknown post.
func (s *EngagementService) RecordView(ctx context.Context, postID string) (*domain.Post, error) {
	if err := s.store.IncrementViewCount(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, postID)
}

// Like records that a member likes a post. The ledger row and the counter
// move in the same transaction, so a failure leaves both untouched.
// Returns store.ErrAlreadyLiked when the member already likes the post and
// store.ErrPostNotFound for an unknown post.
func (s *EngagementService) Like(ctx context.Context, postID, memberID string) (*domain.Post, error) {
	if err := s.store.LikePost(ctx, postID, memberID); err != nil {
		return nil, err
	}

	s.logger.Info("post liked",
		"post_id", postID,
		"member_id", memberID,
	)

	return s.store.GetPost(ctx, postID)
}

// Unlike removes a member's like from a post.
// Returns store.ErrLikeNotFound when there is no like to remove.
func (s *EngagementService) Unlike(ctx context.Context, postID, memberID string) (*domain.Post, error) {
	if err := s.store.UnlikePost(ctx, postID, memberID); err != nil {
		return nil, err
	}

	s.logger.Info("post unliked",
		"post_id", postID,
		"member_id", memberID,
	)

	return s.store.GetPost(ctx, postID)
}

// IsLiked reports whether the member currently likes the post.
func (s *EngagementService) IsLiked(ctx context.Context, postID, memberID string) (bool, error) {
	return s.store.IsLiked(ctx, postID, memberID)
}

// CountLikes returns the number of ledger rows for the post. This is the
// ground truth the denormalized LikeCount mirrors.
func (s *EngagementService) CountLikes(ctx context.Context, postID string) (int, error) {
	return s.store.CountLikes(ctx, postID)
}

// CommentAdded bumps the post's comment counter. Called after the comment
// row itself has been written by the (out of scope) comment pipeline.
func (s *EngagementService) CommentAdded(ctx context.Context, postID string) (*domain.Post, error) {
	if err := s.store.IncrementCommentCount(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, postID)
}

// CommentRemoved drops the post's comment counter. A counter already at
// zero stays at zero.
func (s *EngagementService) CommentRemoved(ctx context.Context, postID string) (*domain.Post, error) {
	if err := s.store.DecrementCommentCount(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, postID)
}
