package service

import (
	"context"
	"log/slog"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/store"
)

// TagService orchestrates global tag operations. Tags are community-wide:
// they are created lazily on first reference and never deleted, even at
// zero usage.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// ReplaceTags reconciles a post's tag set against the requested names.
//
// A nil requested pointer means "leave tags unchanged" — the caller's edit
// did not mention tags at all. A pointer to an empty slice clears every
// tag from the post. Anything else is normalized, diffed against the
// current set, and applied as one transaction: removals first, then
// additions, with every touched tag's usage count adjusted alongside the
// association change.
//
// Tags named in the additions that do not exist yet are created on the
// fly. Returns the post's tag set after the change, ordered by name.
func (s *TagService) ReplaceTags(ctx context.Context, postID string, requested *[]string) ([]*domain.Tag, error) {
	exists, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrPostNotFound
	}

	current, err := s.store.GetTagsForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return current, nil
	}

	currentNames := make([]string, len(current))
	byName := make(map[string]*domain.Tag, len(current))
	for i, tag := range current {
		currentNames[i] = tag.Name
		byName[tag.Name] = tag
	}

	diff := domain.ComputeTagDiff(currentNames, *requested)
	if diff.Empty() {
		return current, nil
	}

	removeIDs := make([]string, 0, len(diff.Remove))
	for _, name := range diff.Remove {
		removeIDs = append(removeIDs, byName[name].ID)
	}

	addIDs := make([]string, 0, len(diff.Add))
	for _, name := range diff.Add {
		tag, created, err := s.store.FindOrCreateTagByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if created {
			s.logger.Info("tag created", "tag_name", tag.Name, "tag_id", tag.ID)
		}
		addIDs = append(addIDs, tag.ID)
	}

	if err := s.store.ApplyTagDiff(ctx, postID, addIDs, removeIDs); err != nil {
		return nil, err
	}

	s.logger.Info("post tags replaced",
		"post_id", postID,
		"added", len(addIDs),
		"removed", len(removeIDs),
	)

	return s.store.GetTagsForPost(ctx, postID)
}

// ListTags returns all tags in the given sort order. An empty sort key
// defaults to most-used first.
func (s *TagService) ListTags(ctx context.Context, sortBy domain.TagSort) ([]*domain.Tag, error) {
	if sortBy == "" {
		sortBy = domain.TagSortUsage
	}
	return s.store.ListTags(ctx, sortBy)
}

// GetTagsForPost returns all tags on a post, ordered by name.
func (s *TagService) GetTagsForPost(ctx context.Context, postID string) ([]*domain.Tag, error) {
	return s.store.GetTagsForPost(ctx, postID)
}

// RecalculateUsage recomputes one tag's usage count from its live
// associations. Use for repairing drift introduced outside the normal
// write paths.
func (s *TagService) RecalculateUsage(ctx context.Context, tagID string) (int, error) {
	count, err := s.store.RecalculateTagUsage(ctx, tagID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("tag usage recalculated", "tag_id", tagID, "usage_count", count)
	return count, nil
}
