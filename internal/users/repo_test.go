//go:build integration_test || all_tests

package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mstanic/bloghaus/internal/db"
	"github.com/mstanic/bloghaus/pkg"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "bloghaus",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_Add_Get(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	usersCount, err := repo.Count(ctx)
	require.NoError(t, err)

	passwordHash, err := pkg.HashPassword(gofakeit.Password(true, true, true, false, false, 12))
	require.NoError(t, err)

	user := &User{
		Email:        gofakeit.Email(),
		Name:         gofakeit.Name(),
		PasswordHash: passwordHash,
	}
	require.NoError(t, repo.Add(ctx, user))
	assert.True(t, user.ID > 0)

	usersCountAfter, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, usersCount+1, usersCountAfter)

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Name, byEmail.Name)
	assert.Equal(t, passwordHash, byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	_, err = repo.GetByEmail(ctx, "nosuchuser@bloghaus.net")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByID(ctx, 25342523)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepo_Add_duplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	passwordHash, err := pkg.HashPassword("testpass")
	require.NoError(t, err)

	user := &User{
		Email:        gofakeit.Email(),
		Name:         gofakeit.Name(),
		PasswordHash: passwordHash,
	}
	require.NoError(t, repo.Add(ctx, user))

	again := &User{
		Email:        user.Email,
		Name:         gofakeit.Name(),
		PasswordHash: passwordHash,
	}
	assert.ErrorIs(t, repo.Add(ctx, again), ErrEmailTaken)
}
