package comments

import "errors"

// ErrPostNotFound is returned when a comment points to a post
// that does not (or no longer does) exist.
var ErrPostNotFound = errors.New("post not found")

type Comment struct {
	ID         int    `json:"id"`
	PostID     int    `json:"post_id"`
	AuthorID   int    `json:"author_id"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
}
