package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mstanic/bloghaus/internal/blog"
	"github.com/mstanic/bloghaus/internal/middleware"
)

func (s *IntegrationTestSuite) doFormRequest(
	ctx context.Context,
	method, path, token string,
	form url.Values,
) (*http.Response, []byte) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(
		ctx,
		method, fmt.Sprintf("%s%s", serverEndpoint, path),
		body,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set(middleware.AuthTokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	return resp, respBytes
}

func (s *IntegrationTestSuite) createPost(ctx context.Context, title, body string) int {
	resp, respBytes := s.doFormRequest(ctx, "POST", "/new-post", s.adminToken, url.Values{
		"title":    {title},
		"subtitle": {"a subtitle"},
		"body":     {body},
		"img_url":  {"https://bloghaus.net/img/header.png"},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	addedParts := strings.Split(string(respBytes), ":")
	s.Require().Len(addedParts, 2)
	s.Require().Equal("added", addedParts[0])
	postID, err := strconv.Atoi(addedParts[1])
	s.Require().NoError(err)
	s.Require().True(postID > 0)

	return postID
}

func (s *IntegrationTestSuite) getPost(ctx context.Context, postID int) blog.PostResponse {
	resp, respBytes := s.doFormRequest(ctx, "GET", fmt.Sprintf("/post/%d", postID), "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var postResp blog.PostResponse
	s.Require().NoError(json.Unmarshal(respBytes, &postResp))
	s.Require().NotNil(postResp.Post)

	return postResp
}

func (s *IntegrationTestSuite) TestBlogLifecycle() {
	ctx := context.Background()

	postID := s.createPost(ctx, "A Day In The Life", "such a fine day it was")

	postResp := s.getPost(ctx, postID)
	s.Equal("A Day In The Life", postResp.Post.Title)
	s.Equal("such a fine day it was", postResp.Post.Body)
	s.Equal(1, postResp.Post.AuthorID)
	s.Equal("Admin", postResp.Post.AuthorName)
	publishDate, err := time.Parse(blog.DateFormat, postResp.Post.Date)
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), publishDate, 25*time.Hour)
	s.Empty(postResp.Comments)

	// title is unique
	resp, respBytes := s.doFormRequest(ctx, "POST", "/new-post", s.adminToken, url.Values{
		"title":    {"A Day In The Life"},
		"subtitle": {"a subtitle"},
		"body":     {"a copycat post"},
		"img_url":  {"https://bloghaus.net/img/copycat.png"},
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Contains(string(respBytes), "title already taken")

	resp, respBytes = s.doFormRequest(
		ctx,
		"POST", fmt.Sprintf("/edit-post/%d", postID), s.adminToken,
		url.Values{
			"title":    {"A Night In The Life"},
			"subtitle": {"revised"},
			"body":     {"on second thought, the night was better"},
			"img_url":  {"https://bloghaus.net/img/night.png"},
		},
	)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(fmt.Sprintf("updated:%d", postID), string(respBytes))

	editedPostResp := s.getPost(ctx, postID)
	s.Equal("A Night In The Life", editedPostResp.Post.Title)
	s.Equal("revised", editedPostResp.Post.Subtitle)
	s.Equal("on second thought, the night was better", editedPostResp.Post.Body)
	// author and publish date survive the edit
	s.Equal(postResp.Post.AuthorID, editedPostResp.Post.AuthorID)
	s.Equal(postResp.Post.Date, editedPostResp.Post.Date)

	resp, respBytes = s.doFormRequest(ctx, "GET", fmt.Sprintf("/delete/%d", postID), s.adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(fmt.Sprintf("deleted:%d", postID), string(respBytes))

	resp, _ = s.doFormRequest(ctx, "GET", fmt.Sprintf("/post/%d", postID), "", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp, _ = s.doFormRequest(ctx, "GET", fmt.Sprintf("/delete/%d", postID), s.adminToken, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestNewPost_missingFields() {
	ctx := context.Background()

	resp, respBytes := s.doFormRequest(ctx, "POST", "/new-post", s.adminToken, url.Values{
		"title": {"Half A Post"},
		"body":  {"no subtitle, no image"},
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(string(respBytes), "subtitle empty")

	resp, respBytes = s.doFormRequest(ctx, "POST", "/new-post", s.adminToken, url.Values{
		"title":    {"Half A Post"},
		"subtitle": {"here now"},
		"body":     {"still no image"},
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(string(respBytes), "image url empty")
}

func (s *IntegrationTestSuite) TestBlog_permissions() {
	ctx := context.Background()

	postForm := url.Values{
		"title": {"Sneaky Post"},
		"body":  {"should never get published"},
	}

	// regular users cannot touch the authoring endpoints
	resp, respBytes := s.doFormRequest(ctx, "POST", "/new-post", s.readerToken, postForm)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Contains(string(respBytes), "forbidden")

	resp, _ = s.doFormRequest(ctx, "POST", "/edit-post/1", s.readerToken, postForm)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = s.doFormRequest(ctx, "GET", "/delete/1", s.readerToken, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	// anonymous visitors get pointed to the login page
	resp, _ = s.doFormRequest(ctx, "POST", "/new-post", "", postForm)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/login", resp.Header.Get("Location"))
}

func (s *IntegrationTestSuite) TestComments() {
	ctx := context.Background()

	postID := s.createPost(ctx, "Open For Discussion", "say what you think")

	// commenting needs an account
	resp, _ := s.doFormRequest(
		ctx,
		"POST", fmt.Sprintf("/post/%d", postID), "",
		url.Values{"text": {"drive-by comment"}},
	)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/login", resp.Header.Get("Location"))

	resp, respBytes := s.doFormRequest(
		ctx,
		"POST", fmt.Sprintf("/post/%d", postID), s.readerToken,
		url.Values{"text": {"first!"}},
	)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.True(strings.HasPrefix(string(respBytes), "added:"))

	resp, respBytes = s.doFormRequest(
		ctx,
		"POST", fmt.Sprintf("/post/%d", postID), s.adminToken,
		url.Values{"text": {"thanks for reading"}},
	)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.True(strings.HasPrefix(string(respBytes), "added:"))

	postResp := s.getPost(ctx, postID)
	s.Require().Len(postResp.Comments, 2)
	s.Equal("first!", postResp.Comments[0].Text)
	s.Equal(s.readerID, postResp.Comments[0].AuthorID)
	s.Equal("Reader", postResp.Comments[0].AuthorName)
	s.Equal("thanks for reading", postResp.Comments[1].Text)
	s.Equal("Admin", postResp.Comments[1].AuthorName)

	// comments on a missing post
	resp, _ = s.doFormRequest(
		ctx,
		"POST", "/post/99999", s.readerToken,
		url.Values{"text": {"hello void"}},
	)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	// deleting the post takes the comments with it
	resp, _ = s.doFormRequest(ctx, "GET", fmt.Sprintf("/delete/%d", postID), s.adminToken, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var commentsCount int
	err := s.dbPool.
		QueryRow(ctx, "SELECT COUNT(*) FROM comments WHERE post_id = $1", postID).
		Scan(&commentsCount)
	s.Require().NoError(err)
	s.Equal(0, commentsCount)
}

func (s *IntegrationTestSuite) TestPostsListing() {
	ctx := context.Background()

	titles := []string{"Listing One", "Listing Two", "Listing Three"}
	for _, title := range titles {
		s.createPost(ctx, title, "listing test post")
	}

	resp, respBytes := s.doFormRequest(ctx, "GET", "/posts", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var allPosts []*blog.Post
	s.Require().NoError(json.Unmarshal(respBytes, &allPosts))
	allTitles := make([]string, 0, len(allPosts))
	for _, post := range allPosts {
		allTitles = append(allTitles, post.Title)
	}
	for _, title := range titles {
		s.Contains(allTitles, title)
	}

	resp, respBytes = s.doFormRequest(ctx, "GET", "/posts/page/1/size/2", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var postsPage blog.PostsResponse
	s.Require().NoError(json.Unmarshal(respBytes, &postsPage))
	s.Len(postsPage.Posts, 2)
	s.GreaterOrEqual(postsPage.Total, len(titles))

	resp, _ = s.doFormRequest(ctx, "GET", "/posts/page/0/size/2", "", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
