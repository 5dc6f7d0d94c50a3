// Package store defines the persistence interface for the Quill server's
// engagement core: post counters, the like ledger, and tag usage.
package store

import (
	"context"

	"github.com/quillpost/quill-server/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Every counter mutation is an atomic conditional update executed inside
// the storage engine — implementations never read a counter into memory,
// adjust it, and write it back from application code. Operations that
// touch more than one piece of state (ledger row + counter, associations +
// usage counts) commit as a single transaction.
type Store interface {
	// Lifecycle
	Close() error

	// Posts
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	PostExists(ctx context.Context, id string) (bool, error)
	ListPosts(ctx context.Context) ([]*domain.Post, error)

	// Counters. Increments on a missing post return ErrPostNotFound.
	// Decrements are guarded — a counter already at zero stays at zero and
	// the call is a no-op, not an error.
	IncrementViewCount(ctx context.Context, postID string) error
	IncrementLikeCount(ctx context.Context, postID string) error
	DecrementLikeCount(ctx context.Context, postID string) error
	IncrementCommentCount(ctx context.Context, postID string) error
	DecrementCommentCount(ctx context.Context, postID string) error
	BulkIncrementTagUsage(ctx context.Context, tagIDs []string) error
	BulkDecrementTagUsage(ctx context.Context, tagIDs []string) error

	// Like ledger. LikePost creates the ledger row and increments the
	// post's like counter in one transaction; UnlikePost is the inverse.
	// Duplicate likes surface ErrAlreadyLiked (enforced by the storage
	// uniqueness constraint, so concurrent duplicates cannot both win);
	// removing a missing like surfaces ErrLikeNotFound.
	LikePost(ctx context.Context, postID, memberID string) error
	UnlikePost(ctx context.Context, postID, memberID string) error
	IsLiked(ctx context.Context, postID, memberID string) (bool, error)
	CountLikes(ctx context.Context, postID string) (int, error)

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTagByID(ctx context.Context, id string) (*domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	FindOrCreateTagByName(ctx context.Context, name string) (*domain.Tag, bool, error)
	ListTags(ctx context.Context, sort domain.TagSort) ([]*domain.Tag, error)

	// Tag associations. ApplyTagDiff removes then adds associations and
	// adjusts usage counts with one bulk operation per direction, all in a
	// single transaction. RecalculateTagUsage recomputes a usage count
	// from the live associations (repair/verification).
	GetTagsForPost(ctx context.Context, postID string) ([]*domain.Tag, error)
	ApplyTagDiff(ctx context.Context, postID string, addIDs, removeIDs []string) error
	RecalculateTagUsage(ctx context.Context, tagID string) (int, error)
}
