package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/id"
)

// Key prefixes for global tag storage.
// Tags are community-wide — no ownership model.
const (
	tagPrefix       = "tag:"           // tag:{id} → Tag JSON
	tagByNamePrefix = "idx:tags:name:" // idx:tags:name:{name} → tagID
	tagPostsPrefix  = "idx:tags:posts" // idx:tags:posts:{tagID}:{postID} → empty
	postTagsPrefix  = "idx:posts:tags" // idx:posts:tags:{postID}:{tagID} → empty
)

func tagPostsKey(tagID, postID string) []byte {
	return []byte(tagPostsPrefix + ":" + tagID + ":" + postID)
}

func postTagsKey(postID, tagID string) []byte {
	return []byte(postTagsPrefix + ":" + postID + ":" + tagID)
}

// CreateTag creates a new global tag. The name index enforces uniqueness;
// a duplicate fails with ErrTagExists.
func (s *BadgerStore) CreateTag(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		nameKey := []byte(tagByNamePrefix + t.Name)
		if _, err := txn.Get(nameKey); err == nil {
			return ErrTagExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, []byte(tagPrefix+t.ID), t); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(t.ID))
	})
}

// GetTagByID retrieves a tag by ID.
func (s *BadgerStore) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Tag
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(tagPrefix+tagID), &t)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTagByName retrieves a tag by its normalized name.
func (s *BadgerStore) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tagID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tagByNamePrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tagID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetTagByID(ctx, tagID)
}

// FindOrCreateTagByName finds an existing tag by normalized name or
// creates a new one with usage count zero.
// Returns (tag, created, error) where created is true if a new tag was
// made. If the create loses a race to a concurrent caller, the
// now-existing row is re-read instead of propagating the conflict.
func (s *BadgerStore) FindOrCreateTagByName(ctx context.Context, name string) (*domain.Tag, bool, error) {
	// Optimistic read first.
	existing, err := s.GetTagByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, false, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	t := &domain.Tag{
		ID:         tagID,
		Name:       name,
		UsageCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if errors.Is(err, ErrTagExists) {
			// Race: another caller created it between read and write.
			existing, err := s.GetTagByName(ctx, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// ListTags returns all tags in the given sort order.
func (s *BadgerStore) ListTags(ctx context.Context, sortBy domain.TagSort) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !sortBy.Valid() {
		return nil, ErrInvalidInput.WithCause(errors.New("unknown tag sort key: " + string(sortBy)))
	}

	prefix := []byte(tagPrefix)
	var tags []*domain.Tag

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t domain.Tag
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				return err
			}
			tags = append(tags, &t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case domain.TagSortUsage:
		// Usage descending, name as tiebreaker for stability.
		sort.Slice(tags, func(i, j int) bool {
			if tags[i].UsageCount != tags[j].UsageCount {
				return tags[i].UsageCount > tags[j].UsageCount
			}
			return tags[i].Name < tags[j].Name
		})
	case domain.TagSortName:
		sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	}

	return tags, nil
}

// GetTagsForPost returns all tags on a post, ordered by name.
func (s *BadgerStore) GetTagsForPost(ctx context.Context, postID string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tagIDs, err := s.tagIDsForPost(postID)
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTagByID(ctx, tagID)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// tagIDsForPost reads the post→tag index.
func (s *BadgerStore) tagIDsForPost(postID string) ([]string, error) {
	prefix := postTagsPrefix + ":" + postID + ":"
	var tagIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			tagIDs = append(tagIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})

	return tagIDs, err
}

// ApplyTagDiff removes then adds post-tag associations and adjusts each
// affected tag's usage count, all in one conflict-retried transaction.
// Other readers never observe an association without its counter change.
func (s *BadgerStore) ApplyTagDiff(ctx context.Context, postID string, addIDs, removeIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(addIDs) == 0 && len(removeIDs) == 0 {
		return nil
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(postPrefix + postID)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		} else if err != nil {
			return err
		}

		// Removals first so a rename-only shuffle can never double-count.
		for _, tagID := range removeIDs {
			fwd := tagPostsKey(tagID, postID)
			if _, err := txn.Get(fwd); errors.Is(err, badger.ErrKeyNotFound) {
				continue // association already gone
			} else if err != nil {
				return err
			}

			if err := txn.Delete(fwd); err != nil {
				return err
			}
			if err := txn.Delete(postTagsKey(postID, tagID)); err != nil {
				return err
			}
			if err := adjustTagUsage(txn, tagID, -1); err != nil {
				return err
			}
		}

		for _, tagID := range addIDs {
			fwd := tagPostsKey(tagID, postID)
			if _, err := txn.Get(fwd); err == nil {
				continue // already associated
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if err := txn.Set(fwd, []byte{}); err != nil {
				return err
			}
			if err := txn.Set(postTagsKey(postID, tagID), []byte{}); err != nil {
				return err
			}
			if err := adjustTagUsage(txn, tagID, 1); err != nil {
				return err
			}
		}

		return nil
	})
}

// BulkIncrementTagUsage adds one to each tag's usage count in one
// transaction.
func (s *BadgerStore) BulkIncrementTagUsage(ctx context.Context, tagIDs []string) error {
	return s.bulkAdjustTagUsage(ctx, tagIDs, 1)
}

// BulkDecrementTagUsage subtracts one from each tag's usage count in one
// transaction. Counters at zero stay at zero.
func (s *BadgerStore) BulkDecrementTagUsage(ctx context.Context, tagIDs []string) error {
	return s.bulkAdjustTagUsage(ctx, tagIDs, -1)
}

func (s *BadgerStore) bulkAdjustTagUsage(ctx context.Context, tagIDs []string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		for _, tagID := range tagIDs {
			if err := adjustTagUsage(txn, tagID, delta); err != nil {
				return err
			}
		}
		return nil
	})
}

// adjustTagUsage updates a tag's usage count within an existing
// transaction. Decrements are guarded at zero.
func adjustTagUsage(txn *badger.Txn, tagID string, delta int) error {
	key := []byte(tagPrefix + tagID)

	var t domain.Tag
	err := getJSON(txn, key, &t)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrTagNotFound
	}
	if err != nil {
		return err
	}

	if delta < 0 && t.UsageCount == 0 {
		return nil
	}
	t.UsageCount += delta
	t.Touch()

	return setJSON(txn, key, &t)
}

// RecalculateTagUsage recomputes a tag's usage count from the live
// associations and stores it. Returns the recomputed count.
// Use for data repair or verification.
func (s *BadgerStore) RecalculateTagUsage(ctx context.Context, tagID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte(tagPostsPrefix + ":" + tagID + ":")
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		key := []byte(tagPrefix + tagID)

		var t domain.Tag
		err := getJSON(txn, key, &t)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTagNotFound
		}
		if err != nil {
			return err
		}

		t.UsageCount = count
		t.Touch()
		return setJSON(txn, key, &t)
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
