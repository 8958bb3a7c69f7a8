package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/pkg/database"
)

func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(tb, err)
	require.NoError(tb, database.Migrate(db))
	tb.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUser(tb testing.TB, db *gorm.DB, username string) *model.User {
	tb.Helper()
	u := &model.User{Username: username, PasswordHash: "x"}
	require.NoError(tb, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedGroup(tb testing.TB, db *gorm.DB, slug string) *model.Group {
	tb.Helper()
	g := &model.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(tb, NewGroupRepository(db).Create(context.Background(), g))
	return g
}

// seedPosts creates n posts one second apart, oldest first.
func seedPosts(tb testing.TB, db *gorm.DB, author *model.User, group *model.Group, n int) []model.Post {
	tb.Helper()
	base := time.Now().Add(-time.Hour)
	posts := make([]model.Post, n)
	for i := range posts {
		posts[i] = model.Post{Text: fmt.Sprintf("Текст %d", i), AuthorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if group != nil {
			posts[i].GroupID = &group.ID
		}
		require.NoError(tb, NewPostRepository(db).Create(context.Background(), &posts[i]))
	}
	return posts
}
