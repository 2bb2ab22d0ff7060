package blog

import "errors"

// DateFormat is the human readable publish date stored with each post,
// e.g. "August 31, 2026".
const DateFormat = "January 02, 2006"

var (
	ErrPostNotFound = errors.New("post not found")
	ErrTitleTaken   = errors.New("post title already taken")
)

type Post struct {
	ID         int    `json:"id"`
	AuthorID   int    `json:"author_id"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Date       string `json:"date"`
	Body       string `json:"body"`
	ImgURL     string `json:"img_url"`
}
