package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quillpost/quill-server/internal/domain"
)

// Key prefix for the like ledger.
const (
	likePrefix = "like:" // like:{postID}:{memberID} → Like JSON
)

func likeKey(postID, memberID string) []byte {
	return []byte(likePrefix + postID + ":" + memberID)
}

// LikePost records that a member likes a post and increments the post's
// like counter, in one transaction. The ledger row is the uniqueness
// backstop: a duplicate — including one racing past a pre-check — fails
// with ErrAlreadyLiked and the counter is untouched.
func (s *BadgerStore) LikePost(ctx context.Context, postID, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		postKey := []byte(postPrefix + postID)
		var p domain.Post
		err := getJSON(txn, postKey, &p)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}

		lk := likeKey(postID, memberID)
		if _, err := txn.Get(lk); err == nil {
			return ErrAlreadyLiked
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		like := domain.Like{
			PostID:    postID,
			MemberID:  memberID,
			CreatedAt: time.Now(),
		}
		if err := setJSON(txn, lk, &like); err != nil {
			return err
		}

		p.LikeCount++
		p.Touch()
		return setJSON(txn, postKey, &p)
	})
}

// UnlikePost removes a member's like and decrements the post's like
// counter, in one transaction. Removing a like that does not exist fails
// with ErrLikeNotFound.
func (s *BadgerStore) UnlikePost(ctx context.Context, postID, memberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		postKey := []byte(postPrefix + postID)
		var p domain.Post
		err := getJSON(txn, postKey, &p)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}

		lk := likeKey(postID, memberID)
		if _, err := txn.Get(lk); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLikeNotFound
		} else if err != nil {
			return err
		}

		if err := txn.Delete(lk); err != nil {
			return err
		}

		if p.LikeCount > 0 {
			p.LikeCount--
		}
		p.Touch()
		return setJSON(txn, postKey, &p)
	})
}

// IsLiked checks whether a ledger row exists for (post, member).
func (s *BadgerStore) IsLiked(ctx context.Context, postID, memberID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(likeKey(postID, memberID))
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

// CountLikes counts the live ledger rows for a post.
func (s *BadgerStore) CountLikes(ctx context.Context, postID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte(likePrefix + postID + ":")
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

	return count, err
}
