package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mstanic/bloghaus/internal/auth"
	"github.com/mstanic/bloghaus/internal/comments"
	"github.com/mstanic/bloghaus/internal/telemetry/metrics"
	"github.com/mstanic/bloghaus/pkg"
)

const (
	oneMinute = 60
	// the post list barely changes, a short lived cache takes
	// the read pressure off the posts listing queries
	allPostsCacheExpire = 5 * oneMinute
	allPostsCacheKey    = "posts::all"
)

type PostsResponse struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
}

type PostResponse struct {
	Post     *Post               `json:"post"`
	Comments []*comments.Comment `json:"comments"`
}

type newPostRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Body     string `json:"body"`
	ImgURL   string `json:"img_url"`
}

type newCommentRequest struct {
	Text string `json:"text"`
}

type postsRepo interface {
	Add(ctx context.Context, post *Post) error
	Update(ctx context.Context, id int, title, subtitle, body, imgURL string) error
	Delete(ctx context.Context, id int) error
	All(ctx context.Context) ([]*Post, error)
	Get(ctx context.Context, id int) (*Post, error)
	PostsCount(ctx context.Context) (int, error)
	GetPostsPage(ctx context.Context, page, size int) ([]*Post, error)
}

type commentsRepo interface {
	Add(ctx context.Context, comment *comments.Comment) error
	ListForPost(ctx context.Context, postID int) ([]*comments.Comment, error)
}

type Handler struct {
	repo         postsRepo
	commentsRepo commentsRepo
	metrics      *metrics.Manager
	cache        *freecache.Cache
}

func NewBlogHandler(
	repo postsRepo,
	commentsRepo commentsRepo,
	metricsManager *metrics.Manager,
) *Handler {
	megabyte := 1024 * 1024
	return &Handler{
		repo:         repo,
		commentsRepo: commentsRepo,
		metrics:      metricsManager,
		cache:        freecache.NewCache(10 * megabyte),
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/", handler.handleAll).Methods("GET").Name("root")
	router.HandleFunc("/posts", handler.handleAll).Methods("GET").Name("all-posts")
	router.HandleFunc("/posts/page/{page}/size/{size}", handler.handleGetPage).Methods("GET").Name("posts-page")
	router.HandleFunc("/post/{id}", handler.handleGetPost).Methods("GET").Name("get-post")
	router.HandleFunc("/post/{id}", handler.handleNewComment).Methods("POST", "OPTIONS").Name("new-comment")
	router.HandleFunc("/new-post", handler.handleNewPost).Methods("POST", "OPTIONS").Name("new-post")
	router.HandleFunc("/edit-post/{id}", handler.handleEditPost).Methods("POST", "OPTIONS").Name("edit-post")
	router.HandleFunc("/delete/{id}", handler.handleDeletePost).Methods("GET", "OPTIONS").Name("delete-post")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	if cachedPosts, err := handler.cache.Get([]byte(allPostsCacheKey)); err == nil {
		log.Tracef("all posts served from cache")
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cachedPosts)
		return
	}

	allPosts, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all posts error: %s", err)
		http.Error(w, "get all posts error", http.StatusInternalServerError)
		return
	}
	if allPosts == nil {
		allPosts = []*Post{}
	}

	allPostsJson, err := json.Marshal(allPosts)
	if err != nil {
		log.Errorf("marshal all posts error: %s", err)
		http.Error(w, "marshal all posts error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set([]byte(allPostsCacheKey), allPostsJson, allPostsCacheExpire); err != nil {
		log.Errorf("failed to write all posts cache: %s", err)
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allPostsJson)
}

func (handler *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	pageStr := vars["page"]
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		log.Errorf("handle get posts page, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	sizeStr := vars["size"]
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		log.Errorf("handle get posts page, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	log.Tracef("get posts - page %s size %s", pageStr, sizeStr)

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	posts, err := handler.repo.GetPostsPage(r.Context(), page, size)
	if err != nil {
		log.Errorf("get posts error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*Post{}
	}

	totalPostsCount, err := handler.repo.PostsCount(r.Context())
	if err != nil {
		log.Errorf("get posts error: %s", err)
		http.Error(w, "failed to get posts", http.StatusInternalServerError)
		return
	}

	postsResp := PostsResponse{
		Posts: posts,
		Total: totalPostsCount,
	}

	postsRespJson, err := json.Marshal(postsResp)
	if err != nil {
		log.Errorf("marshal posts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, postsRespJson, http.StatusOK)
}

func (handler *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postIDFromVars(w, r)
	if !ok {
		return
	}

	post, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("get post %d: %s", id, err)
		http.Error(w, "failed to get post", http.StatusInternalServerError)
		return
	}

	postComments, err := handler.commentsRepo.ListForPost(r.Context(), id)
	if err != nil {
		log.Errorf("get post %d comments: %s", id, err)
		http.Error(w, "failed to get post", http.StatusInternalServerError)
		return
	}
	if postComments == nil {
		postComments = []*comments.Comment{}
	}

	postRespJson, err := json.Marshal(PostResponse{
		Post:     post,
		Comments: postComments,
	})
	if err != nil {
		log.Errorf("marshal post error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postRespJson)
}

func (handler *Handler) handleNewComment(w http.ResponseWriter, r *http.Request) {
	session, loggedIn := auth.SessionFromContext(r.Context())
	if !loggedIn {
		w.Header().Set("Location", "/login")
		pkg.WriteResponse(
			w,
			pkg.ContentType.Text,
			"you need to login or register to comment",
			http.StatusFound,
		)
		return
	}

	id, ok := postIDFromVars(w, r)
	if !ok {
		return
	}

	var newCommentReq newCommentRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&newCommentReq); err != nil {
			log.Errorf("new comment, unmarshal json params: %s", err)
			http.Error(w, "add comment failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("add new comment failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		newCommentReq = newCommentRequest{
			Text: r.Form.Get("text"),
		}
	}

	if newCommentReq.Text == "" {
		http.Error(w, "error, comment text empty", http.StatusBadRequest)
		return
	}

	newComment := &comments.Comment{
		PostID:   id,
		AuthorID: session.UserID,
		Text:     newCommentReq.Text,
	}
	if err := handler.commentsRepo.Add(r.Context(), newComment); err != nil {
		if errors.Is(err, comments.ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("add new comment failed: %s", err)
		http.Error(w, "add new comment failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterNewComments.Inc()
	log.Tracef("new comment %d on post %d by user %d", newComment.ID, id, session.UserID)

	pkg.WriteResponse(
		w,
		pkg.ContentType.Text,
		fmt.Sprintf("added:%d", newComment.ID),
		http.StatusCreated,
	)
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	session, loggedIn := auth.SessionFromContext(r.Context())
	if !loggedIn {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	newPostReq, ok := handler.postParams(w, r)
	if !ok {
		return
	}

	newPost := &Post{
		AuthorID: session.UserID,
		Title:    newPostReq.Title,
		Subtitle: newPostReq.Subtitle,
		Date:     time.Now().Format(DateFormat),
		Body:     newPostReq.Body,
		ImgURL:   newPostReq.ImgURL,
	}

	if err := handler.repo.Add(r.Context(), newPost); err != nil {
		if errors.Is(err, ErrTitleTaken) {
			http.Error(w, "error, title already taken", http.StatusConflict)
			return
		}
		log.Errorf("add new post failed: %s", err)
		http.Error(w, "add new post failed", http.StatusInternalServerError)
		return
	}

	handler.invalidatePostsCache()
	handler.metrics.CounterNewPosts.Inc()
	log.Tracef("new post %d: [%s] added", newPost.ID, newPost.Title)

	pkg.WriteResponse(
		w,
		pkg.ContentType.Text,
		fmt.Sprintf("added:%d", newPost.ID),
		http.StatusCreated,
	)
}

func (handler *Handler) handleEditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postIDFromVars(w, r)
	if !ok {
		return
	}

	editPostReq, ok := handler.postParams(w, r)
	if !ok {
		return
	}

	err := handler.repo.Update(
		r.Context(), id,
		editPostReq.Title, editPostReq.Subtitle, editPostReq.Body, editPostReq.ImgURL,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			http.Error(w, "post not found", http.StatusNotFound)
		case errors.Is(err, ErrTitleTaken):
			http.Error(w, "error, title already taken", http.StatusConflict)
		default:
			log.Errorf("update post %d failed: %s", id, err)
			http.Error(w, "update post failed", http.StatusInternalServerError)
		}
		return
	}

	handler.invalidatePostsCache()

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%d", id))
}

func (handler *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postIDFromVars(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete post %d: %s", id, err)
		http.Error(w, "error, post not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	handler.invalidatePostsCache()
	log.Tracef("post %d deleted", id)

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

// postParams reads and validates the post fields shared
// by the create and edit endpoints
func (handler *Handler) postParams(w http.ResponseWriter, r *http.Request) (newPostRequest, bool) {
	var postReq newPostRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&postReq); err != nil {
			log.Errorf("post params, unmarshal json params: %s", err)
			http.Error(w, "save post failed", http.StatusBadRequest)
			return postReq, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("save post failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return postReq, false
		}
		postReq = newPostRequest{
			Title:    r.Form.Get("title"),
			Subtitle: r.Form.Get("subtitle"),
			Body:     r.Form.Get("body"),
			ImgURL:   r.Form.Get("img_url"),
		}
	}

	if postReq.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return postReq, false
	}
	if postReq.Subtitle == "" {
		http.Error(w, "error, subtitle empty", http.StatusBadRequest)
		return postReq, false
	}
	if postReq.Body == "" {
		http.Error(w, "error, body empty", http.StatusBadRequest)
		return postReq, false
	}
	if postReq.ImgURL == "" {
		http.Error(w, "error, image url empty", http.StatusBadRequest)
		return postReq, false
	}
	if u, err := url.ParseRequestURI(postReq.ImgURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "error, invalid image url", http.StatusBadRequest)
		return postReq, false
	}

	return postReq, true
}

func (handler *Handler) invalidatePostsCache() {
	handler.cache.Del([]byte(allPostsCacheKey))
}

func postIDFromVars(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
