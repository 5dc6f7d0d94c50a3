package domain

import "time"

// Post is the subset of a blog post this core cares about: identity plus
// the denormalized engagement counters.
//
// The counters are mutated only through the store's atomic operations.
// Application code never reads a counter, adjusts it in memory, and writes
// it back — that pattern loses updates under concurrency.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	ViewCount    int       `json:"view_count"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (p *Post) Touch() {
	p.UpdatedAt = time.Now()
}

// InitTimestamps sets CreatedAt and UpdatedAt for a new post.
func (p *Post) InitTimestamps() {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}
