package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillpost/quill-server/internal/domain"
	"github.com/quillpost/quill-server/internal/id"
	"github.com/quillpost/quill-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, usage_count, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&t.UsageCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrTagExists on a duplicate name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.UsageCount,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrTagExists
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrTagNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName retrieves a tag by its normalized name.
// Returns store.ErrTagNotFound if the tag does not exist.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindOrCreateTagByName finds an existing tag by normalized name or
// creates a new one with usage count zero.
// Returns (tag, created, error) where created is true if a new tag was
// made. The unique constraint on name is the backstop for concurrent
// creators: if the insert loses the race, the now-existing row is re-read
// instead of propagating the conflict.
func (s *Store) FindOrCreateTagByName(ctx context.Context, name string) (*domain.Tag, bool, error) {
	existing, err := s.GetTagByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrTagNotFound) {
		return nil, false, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now()
	t := &domain.Tag{
		ID:        tagID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if errors.Is(err, store.ErrTagExists) {
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

// tagSortClauses maps permitted sort keys to ORDER BY clauses. Keys not in
// this map are rejected before any query is built.
var tagSortClauses = map[domain.TagSort]string{
	domain.TagSortUsage: `usage_count DESC, name ASC`,
	domain.TagSortName:  `name ASC`,
}

// ListTags returns all tags in the given sort order.
func (s *Store) ListTags(ctx context.Context, sortBy domain.TagSort) ([]*domain.Tag, error) {
	clause, ok := tagSortClauses[sortBy]
	if !ok {
		return nil, store.ErrInvalidInput.WithCause(fmt.Errorf("unknown tag sort key %q", sortBy))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY `+clause)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

// GetTagsForPost returns all tags on a post, ordered by name.
func (s *Store) GetTagsForPost(ctx context.Context, postID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE id IN (SELECT tag_id FROM post_tags WHERE post_id = ?)
		ORDER BY name ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query post tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// placeholders returns "?, ?, …" with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// bulkAdjustTagUsage issues one guarded UPDATE across all given tag IDs.
// Decrements skip tags already at zero (the WHERE guard), never going
// negative. execer is either the pooled DB or an open transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func bulkAdjustTagUsage(ctx context.Context, e execer, tagIDs []string, delta int) error {
	if len(tagIDs) == 0 {
		return nil
	}

	var q string
	if delta > 0 {
		q = `UPDATE tags SET usage_count = usage_count + 1, updated_at = ? WHERE id IN (` + placeholders(len(tagIDs)) + `)`
	} else {
		q = `UPDATE tags SET usage_count = usage_count - 1, updated_at = ? WHERE usage_count > 0 AND id IN (` + placeholders(len(tagIDs)) + `)`
	}

	args := make([]any, 0, len(tagIDs)+1)
	args = append(args, formatTime(time.Now()))
	for _, tagID := range tagIDs {
		args = append(args, tagID)
	}

	if _, err := e.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("adjust tag usage: %w", err)
	}
	return nil
}

// BulkIncrementTagUsage adds one to each tag's usage count in one
// statement.
func (s *Store) BulkIncrementTagUsage(ctx context.Context, tagIDs []string) error {
	return bulkAdjustTagUsage(ctx, s.db, tagIDs, 1)
}

// BulkDecrementTagUsage subtracts one from each tag's usage count in one
// statement. Tags at zero stay at zero.
func (s *Store) BulkDecrementTagUsage(ctx context.Context, tagIDs []string) error {
	return bulkAdjustTagUsage(ctx, s.db, tagIDs, -1)
}

// ApplyTagDiff removes then adds post-tag associations and adjusts usage
// counts, all in a single transaction. Each direction uses one bulk
// counter UPDATE, so the number of statements is constant regardless of
// tag-set size. Only associations that actually changed adjust a counter:
// the delete reports which rows it removed and the inserts skip pairs that
// already exist.
func (s *Store) ApplyTagDiff(ctx context.Context, postID string, addIDs, removeIDs []string) error {
	if len(addIDs) == 0 && len(removeIDs) == 0 {
		return nil
	}

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

	// Removals first so a name shuffle can never double-count a tag that
	// appears in both the old and new sets.
	if len(removeIDs) > 0 {
		args := make([]any, 0, len(removeIDs)+1)
		args = append(args, postID)
		for _, tagID := range removeIDs {
			args = append(args, tagID)
		}

		rows, err := tx.QueryContext(ctx, `
			DELETE FROM post_tags WHERE post_id = ? AND tag_id IN (`+placeholders(len(removeIDs))+`)
			RETURNING tag_id`, args...)
		if err != nil {
			return fmt.Errorf("delete post_tags: %w", err)
		}

		var removed []string
		for rows.Next() {
			var tagID string
			if err := rows.Scan(&tagID); err != nil {
				rows.Close()
				return err
			}
			removed = append(removed, tagID)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		if err := bulkAdjustTagUsage(ctx, tx, removed, -1); err != nil {
			return err
		}
	}

	if len(addIDs) > 0 {
		now := formatTime(time.Now())
		var added []string
		for _, tagID := range addIDs {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO post_tags (post_id, tag_id, created_at)
				VALUES (?, ?, ?)`,
				postID, tagID, now,
			)
			if err != nil {
				return fmt.Errorf("insert post_tag: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n > 0 {
				added = append(added, tagID)
			}
		}

		if err := bulkAdjustTagUsage(ctx, tx, added, 1); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecalculateTagUsage recomputes a tag's usage count from the live
// associations and stores it. Returns the recomputed count.
// Use for data repair or verification.
func (s *Store) RecalculateTagUsage(ctx context.Context, tagID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET usage_count = (SELECT COUNT(*) FROM post_tags WHERE tag_id = tags.id),
		    updated_at = ?
		WHERE id = ?`,
		formatTime(time.Now()), tagID,
	)
	if err != nil {
		return 0, fmt.Errorf("recalculate tag usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrTagNotFound
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT usage_count FROM tags WHERE id = ?`, tagID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
