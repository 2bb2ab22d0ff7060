package blog

import (
	"context"
	"sort"
	"sync"

	"github.com/mstanic/bloghaus/internal/comments"
)

var _ postsRepo = (*repoMock)(nil)

type repoMock struct {
	Posts map[int]*Post
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts: make(map[int]*Post),
	}
}

func (r *repoMock) Add(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, p := range r.Posts {
		if p.Title == post.Title {
			return ErrTitleTaken
		}
	}

	if post.ID == 0 {
		post.ID = len(r.Posts) + 1
	}
	r.Posts[post.ID] = post

	return nil
}

func (r *repoMock) Update(_ context.Context, id int, title, subtitle, body, imgURL string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return ErrPostNotFound
	}

	for _, p := range r.Posts {
		if p.ID != id && p.Title == title {
			return ErrTitleTaken
		}
	}

	post.Title = title
	post.Subtitle = subtitle
	post.Body = body
	post.ImgURL = imgURL

	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.Posts, id)

	return nil
}

func (r *repoMock) All(_ context.Context) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.allSorted(), nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (r *repoMock) PostsCount(_ context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Posts), nil
}

func (r *repoMock) GetPostsPage(_ context.Context, page, size int) ([]*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	allPosts := r.allSorted()
	if len(allPosts) <= size {
		return allPosts, nil
	}

	startIndex := (page - 1) * size
	endIndex := startIndex + size

	// overflow
	if startIndex >= len(allPosts) {
		return []*Post{}, nil
	}
	if endIndex > len(allPosts) {
		endIndex = len(allPosts)
	}

	return allPosts[startIndex:endIndex], nil
}

func (r *repoMock) allSorted() []*Post {
	var posts []*Post
	for id := range r.Posts {
		posts = append(posts, r.Posts[id])
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ID > posts[j].ID
	})
	return posts
}

var _ commentsRepo = (*commentsRepoMock)(nil)

type commentsRepoMock struct {
	posts    *repoMock
	Comments map[int]*comments.Comment
	mutex    sync.Mutex
}

func newCommentsRepoMock(posts *repoMock) *commentsRepoMock {
	return &commentsRepoMock{
		posts:    posts,
		Comments: make(map[int]*comments.Comment),
	}
}

func (r *commentsRepoMock) Add(_ context.Context, comment *comments.Comment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts.Posts[comment.PostID]; !ok {
		return comments.ErrPostNotFound
	}

	if comment.ID == 0 {
		comment.ID = len(r.Comments) + 1
	}
	r.Comments[comment.ID] = comment

	return nil
}

func (r *commentsRepoMock) ListForPost(_ context.Context, postID int) ([]*comments.Comment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var postComments []*comments.Comment
	for _, c := range r.Comments {
		if c.PostID == postID {
			postComments = append(postComments, c)
		}
	}
	sort.Slice(postComments, func(i, j int) bool {
		return postComments[i].ID < postComments[j].ID
	})

	return postComments, nil
}
