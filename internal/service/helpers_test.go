package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
	"github.com/d60-Lab/yatube/pkg/database"
)

type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		groups:   repository.NewGroupRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
	}
}

func (e *testEnv) user(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) group(t *testing.T, slug string) *model.Group {
	t.Helper()
	g := &model.Group{Title: "Тестовая группа", Slug: slug, Description: "Тестовое описание"}
	require.NoError(t, e.groups.Create(context.Background(), g))
	return g
}

// seedPosts creates n posts one second apart; the last one is the newest.
func (e *testEnv) seedPosts(t *testing.T, author *model.User, group *model.Group, n int) []model.Post {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	posts := make([]model.Post, n)
	for i := range posts {
		posts[i] = model.Post{Text: fmt.Sprintf("Пост %d", i), AuthorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if group != nil {
			posts[i].GroupID = &group.ID
		}
		require.NoError(t, e.posts.Create(context.Background(), &posts[i]))
	}
	return posts
}
