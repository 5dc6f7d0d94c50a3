package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillpost/quill-server/internal/store"
)

// LikePost records that a member likes a post.
// The ledger insert and the counter increment commit as one transaction:
// a ledger row never exists without its counter update and vice versa.
// The primary key on (post_id, member_id) is the backstop for concurrent
// duplicates — a second writer that passed the existence check still fails
// on the insert and surfaces store.ErrAlreadyLiked.
func (s *Store) LikePost(ctx context.Context, postID, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("check post: %w", err)
	}

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO likes (post_id, member_id, created_at)
		VALUES (?, ?, ?)`,
		postID, memberID, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyLiked
		}
		return fmt.Errorf("insert like: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + 1, updated_at = ? WHERE id = ?`,
		now, postID,
	)
	if err != nil {
		return fmt.Errorf("increment like_count: %w", err)
	}

	return tx.Commit()
}

// UnlikePost removes a member's like.
// The ledger delete and the guarded counter decrement commit as one
// transaction. Removing a like that does not exist fails with
// store.ErrLikeNotFound; the counter is untouched.
func (s *Store) UnlikePost(ctx context.Context, postID, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("check post: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE post_id = ? AND member_id = ?`,
		postID, memberID,
	)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrLikeNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count - 1, updated_at = ? WHERE id = ? AND like_count > 0`,
		formatTime(time.Now()), postID,
	)
	if err != nil {
		return fmt.Errorf("decrement like_count: %w", err)
	}

	return tx.Commit()
}

// IsLiked checks whether a ledger row exists for (post, member).
func (s *Store) IsLiked(ctx context.Context, postID, memberID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM likes WHERE post_id = ? AND member_id = ?`,
		postID, memberID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountLikes counts the live ledger rows for a post.
func (s *Store) CountLikes(ctx context.Context, postID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}
