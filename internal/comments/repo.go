package comments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mstanic/bloghaus/internal/telemetry/tracing"
	"github.com/mstanic/bloghaus/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, comment *Comment) error {
	if comment.Text == "" {
		return errors.New("comment text empty")
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO comments (author_id, post_id, text) VALUES ($1, $2, $3) RETURNING id;`,
		comment.AuthorID, comment.PostID, comment.Text,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return ErrPostNotFound
		}
		return err
	}
	defer rows.Close()

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			comment.ID = id
			return nil
		}
	}

	// with pgx the FK violation can surface only after reading the rows
	if err := rows.Err(); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return ErrPostNotFound
		}
		return err
	}

	return errors.New("unexpected error, failed to insert comment")
}

// ListForPost returns all comments on a post, oldest first,
// with the commenter names resolved.
func (r *Repo) ListForPost(ctx context.Context, postID int) ([]*Comment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.ListForPost")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT c.id, c.post_id, c.author_id, u.name, c.text
			FROM comments c
			JOIN users u ON u.id = c.author_id
			WHERE c.post_id = $1
			ORDER BY c.id;`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2comments(rows)
}

// ListByAuthor returns all comments written by the given user,
// oldest first.
func (r *Repo) ListByAuthor(ctx context.Context, authorID int) ([]*Comment, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "commentsRepo.ListByAuthor")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT c.id, c.post_id, c.author_id, u.name, c.text
			FROM comments c
			JOIN users u ON u.id = c.author_id
			WHERE c.author_id = $1
			ORDER BY c.id;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2comments(rows)
}

func rows2comments(rows pgx.Rows) ([]*Comment, error) {
	var listed []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Text); err != nil {
			return nil, err
		}
		listed = append(listed, &c)
	}
	return listed, nil
}

func (r *Repo) CountForPost(ctx context.Context, postID int) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = $1;`, postID)
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

	return -1, errors.New("unexpected error, failed to get comments count")
}
