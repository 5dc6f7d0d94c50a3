package domain

import "time"

// Tag is a global community tag. Name is the source of truth for identity:
// normalized (trimmed, casefolded), unique across the system.
// UsageCount is denormalized — for every tag it must equal the number of
// live PostTag rows referencing it, which the store maintains by adjusting
// the counter in the same transaction as the association change.
//
// Tags are created lazily the first time a name is referenced and are never
// deleted by this core, even at zero usage.
type Tag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// PostTag is the many-to-many association between posts and tags.
// (PostID, TagID) is unique together.
type PostTag struct {
	PostID    string    `json:"post_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TagSort defines the permitted sort keys for tag listings.
// Sort keys are validated against this closed set before any query is
// built, so no caller-supplied string ever reaches query construction.
type TagSort string

const (
	TagSortUsage TagSort = "usage"
	TagSortName  TagSort = "name"
)

// Valid checks if the sort key is one of the permitted values.
func (s TagSort) Valid() bool {
	switch s {
	case TagSortUsage, TagSortName:
		return true
	default:
		return false
	}
}
