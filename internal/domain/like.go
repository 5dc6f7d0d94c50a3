package domain

import "time"

// Like is a ledger row recording that a member likes a post.
// Identity is the (PostID, MemberID) pair — there is no surrogate ID.
// Existence of the row gates the post's like counter: the row and the
// counter change are committed together, so the counter always equals the
// number of live ledger rows.
type Like struct {
	PostID    string    `json:"post_id"`
	MemberID  string    `json:"member_id"`
	CreatedAt time.Time `json:"created_at"`
}
