package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/quillpost/quill-server/internal/domain"
)

// Key prefixes for post storage.
const (
	postPrefix = "post:" // post:{id} → Post JSON
)

// CreatePost stores a new post. Counters start at zero regardless of the
// values on the struct.
func (s *BadgerStore) CreatePost(ctx context.Context, post *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p := *post
	p.ViewCount = 0
	p.LikeCount = 0
	p.CommentCount = 0

	return s.update(ctx, func(txn *badger.Txn) error {
		key := []byte(postPrefix + p.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, &p)
	})
}

// GetPost retrieves a post by ID.
func (s *BadgerStore) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p domain.Post
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(postPrefix+id), &p)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PostExists checks whether a post exists.
func (s *BadgerStore) PostExists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(postPrefix + id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPosts returns all posts ordered by ID.
func (s *BadgerStore) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(postPrefix)
	var posts []*domain.Post

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Post
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				return err
			}
			posts = append(posts, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

// mutatePost applies mutate to the post inside a conflict-retried
// transaction. All counter operations funnel through here, so a counter
// change is always a read-mutate-write of the whole document guarded by
// Badger's conflict detection — never a blind overwrite.
func (s *BadgerStore) mutatePost(ctx context.Context, postID string, mutate func(p *domain.Post)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		key := []byte(postPrefix + postID)
		var p domain.Post
		err := getJSON(txn, key, &p)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}

		mutate(&p)
		p.Touch()
		return setJSON(txn, key, &p)
	})
}

// IncrementViewCount adds one to the post's view counter.
func (s *BadgerStore) IncrementViewCount(ctx context.Context, postID string) error {
	return s.mutatePost(ctx, postID, func(p *domain.Post) { p.ViewCount++ })
}

// IncrementLikeCount adds one to the post's like counter.
func (s *BadgerStore) IncrementLikeCount(ctx context.Context, postID string) error {
	return s.mutatePost(ctx, postID, func(p *domain.Post) { p.LikeCount++ })
}

// DecrementLikeCount subtracts one from the post's like counter.
// A counter already at zero stays at zero; the call is a no-op.
func (s *BadgerStore) DecrementLikeCount(ctx context.Context, postID string) error {
	return s.mutatePost(ctx, postID, func(p *domain.Post) {
		if p.LikeCount > 0 {
			p.LikeCount--
		}
	})
}

// IncrementCommentCount adds one to the post's comment counter.
func (s *BadgerStore) IncrementCommentCount(ctx context.Context, postID string) error {
	return s.mutatePost(ctx, postID, func(p *domain.Post) { p.CommentCount++ })
}

// DecrementCommentCount subtracts one from the post's comment counter.
// A counter already at zero stays at zero; the call is a no-op.
func (s *BadgerStore) DecrementCommentCount(ctx context.Context, postID string) error {
	return s.mutatePost(ctx, postID, func(p *domain.Post) {
		if p.CommentCount > 0 {
			p.CommentCount--
		}
	})
}
