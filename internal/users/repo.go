package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/mstanic/bloghaus/internal/telemetry/tracing"
	"github.com/mstanic/bloghaus/pkg"
)

var _ usersRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, user *User) error {
	if user.Email == "" || user.Name == "" || user.PasswordHash == "" {
		return errors.New("user email, name or password empty")
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO users (email, password, name) VALUES ($1, $2, $3) RETURNING id;`,
		user.Email, user.PasswordHash, user.Name,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrEmailTaken
		}
		return err
	}
	defer rows.Close()

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			user.ID = id
			return nil
		}
	}

	// with pgx the unique violation can surface only after reading the rows
	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrEmailTaken
		}
		return err
	}

	return errors.New("unexpected error, failed to insert user")
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.GetByEmail")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password, name FROM users WHERE email = $1;`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	return scanUser(rows.Scan)
}

func (r *Repo) GetByID(ctx context.Context, id int) (*User, error) {
	log.Tracef("getting user %d", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.GetByID")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password, name FROM users WHERE id = $1;`,
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
		return nil, ErrUserNotFound
	}

	return scanUser(rows.Scan)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM users`)
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

	return -1, errors.New("unexpected error, failed to get users count")
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	var id int
	var email string
	var passwordHash string
	var name string
	if err := scan(&id, &email, &passwordHash, &name); err != nil {
		return nil, err
	}
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	}, nil
}
