package blog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mstanic/bloghaus/internal/telemetry/tracing"
	"github.com/mstanic/bloghaus/pkg"
)

// manual caching of posts on this level not needed:
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

var _ postsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, post *Post) error {
	if post.Title == "" || post.Body == "" {
		return errors.New("post title or body empty")
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO blog_posts (author_id, title, subtitle, date, body, img_url)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
		post.AuthorID, post.Title, post.Subtitle, post.Date, post.Body, post.ImgURL,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrTitleTaken
		}
		return err
	}
	defer rows.Close()

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			post.ID = id
			return nil
		}
	}

	// with pgx the unique violation can surface only after reading the rows
	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrTitleTaken
		}
		return err
	}

	return errors.New("unexpected error, failed to insert post")
}

// Update will change the title, subtitle, body and image of the post
// author and publish date are never updated
func (r *Repo) Update(ctx context.Context, id int, title, subtitle, body, imgURL string) error {
	if title == "" || body == "" {
		return errors.New("post title or body empty")
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE blog_posts SET title = $1, subtitle = $2, body = $3, img_url = $4 WHERE id = $5`,
		title, subtitle, body, imgURL, id,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrTitleTaken
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return nil
}

// Delete removes the post, its comments go with it (FK cascade)
func (r *Repo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT b.id, b.author_id, u.name, b.title, b.subtitle, b.date, b.body, b.img_url
			FROM blog_posts b
			JOIN users u ON u.id = b.author_id
			ORDER BY b.id DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

// FindByAuthor returns all posts written by the given user,
// newest first.
func (r *Repo) FindByAuthor(ctx context.Context, authorID int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.FindByAuthor")
	span.SetAttributes(attribute.Int("authorID", authorID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT b.id, b.author_id, u.name, b.title, b.subtitle, b.date, b.body, b.img_url
			FROM blog_posts b
			JOIN users u ON u.id = b.author_id
			WHERE b.author_id = $1
			ORDER BY b.id DESC;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) Get(ctx context.Context, id int) (*Post, error) {
	log.Tracef("getting post %d", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Get")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT b.id, b.author_id, u.name, b.title, b.subtitle, b.date, b.body, b.img_url
			FROM blog_posts b
			JOIN users u ON u.id = b.author_id
			WHERE b.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrPostNotFound
	}

	return scanPost(rows.Scan)
}

func (r *Repo) PostsCount(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PostsCount")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM blog_posts`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get posts count")
}

func (r *Repo) GetPostsPage(ctx context.Context, page, size int) ([]*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.GetPostsPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer span.End()

	limit := size
	offset := (page - 1) * size
	postsCount, err := r.PostsCount(ctx)
	if err != nil {
		return nil, err
	}

	if postsCount <= limit {
		return r.All(ctx)
	}

	if postsCount-offset < limit {
		offset = postsCount - limit
	}

	log.Tracef("getting posts, posts count %d, limit %d, offset %d", postsCount, limit, offset)

	rows, err := r.db.Query(
		ctx,
		`SELECT b.id, b.author_id, u.name, b.title, b.subtitle, b.date, b.body, b.img_url
			FROM blog_posts b
			JOIN users u ON u.id = b.author_id
			ORDER BY b.id DESC
			LIMIT $1
			OFFSET $2;`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) rows2posts(rows pgx.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func scanPost(scan func(dest ...any) error) (*Post, error) {
	var post Post
	if err := scan(
		&post.ID, &post.AuthorID, &post.AuthorName,
		&post.Title, &post.Subtitle, &post.Date, &post.Body, &post.ImgURL,
	); err != nil {
		return nil, err
	}
	return &post, nil
}
