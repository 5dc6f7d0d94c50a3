package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/store"
)

// postColumns is the ordered list of columns selected in post queries.
// Must match the scan order in scanPost.
const postColumns = `id, author_id, title, view_count, like_count, comment_count, created_at, updated_at`

// scanPost scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Post.
func scanPost(scanner interface{ Scan(dest ...any) error }) (*domain.Post, error) {
	var p domain.Post

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&p.ViewCount,
		&p.LikeCount,
		&p.CommentCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// CreatePost inserts a new post. Counters start at zero regardless of the
// values on the struct.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.Title,
		formatTime(post.CreatedAt),
		formatTime(post.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPost retrieves a post by ID.
// Returns store.ErrPostNotFound if the post does not exist.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PostExists checks whether a post exists.
func (s *Store) PostExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPosts returns all posts ordered by ID.
func (s *Store) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

// incrementCounter bumps a single counter column by one in one atomic
// UPDATE. Zero rows affected means the post does not exist.
// The column name comes only from compile-time constants below, never
// from caller input.
func (s *Store) incrementCounter(ctx context.Context, column, postID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET `+column+` = `+column+` + 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), postID)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrPostNotFound
	}
	return nil
}

// decrementCounter lowers a single counter column by one, guarded so a
// counter at zero is left untouched (a no-op, not an error).
func (s *Store) decrementCounter(ctx context.Context, column, postID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET `+column+` = `+column+` - 1, updated_at = ? WHERE id = ? AND `+column+` > 0`,
		formatTime(time.Now()), postID)
	if err != nil {
		return fmt.Errorf("decrement %s: %w", column, err)
	}
	return nil
}

// IncrementViewCount adds one to the post's view counter.
func (s *Store) IncrementViewCount(ctx context.Context, postID string) error {
	return s.incrementCounter(ctx, "view_count", postID)
}

// IncrementLikeCount adds one to the post's like counter.
func (s *Store) IncrementLikeCount(ctx context.Context, postID string) error {
	return s.incrementCounter(ctx, "like_count", postID)
}

// DecrementLikeCount subtracts one from the post's like counter.
func (s *Store) DecrementLikeCount(ctx context.Context, postID string) error {
	return s.decrementCounter(ctx, "like_count", postID)
}

// IncrementCommentCount adds one to the post's comment counter.
func (s *Store) IncrementCommentCount(ctx context.Context, postID string) error {
	return s.incrementCounter(ctx, "comment_count", postID)
}

// DecrementCommentCount subtracts one from the post's comment counter.
func (s *Store) DecrementCommentCount(ctx context.Context, postID string) error {
	return s.decrementCounter(ctx, "comment_count", postID)
}
