package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/yatube/internal/media"
	"github.com/d60-Lab/yatube/internal/model"
)

type fakeImages struct {
	stored []string
	err    error
}

func (f *fakeImages) Store(_ context.Context, filename string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := "posts/" + filename
	f.stored = append(f.stored, key)
	return key, nil
}

func TestPostService_CreateIncrementsCount(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	group := e.group(t, "test-slug")
	images := &fakeImages{}
	svc := NewPostService(e.posts, e.comments, e.groups, images)
	ctx := context.Background()

	before, err := svc.Count(ctx)
	require.NoError(t, err)

	post, err := svc.Create(ctx, author, PostInput{Text: "  Тестовый пост  ", GroupID: &group.ID, ImageName: "small.gif", Image: []byte("gif")})
	require.NoError(t, err)

	after, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тестовый пост", got.Text)
	assert.Equal(t, author.ID, got.Author.ID)
	require.NotNil(t, got.Group)
	assert.Equal(t, group.ID, got.Group.ID)
	assert.Equal(t, "posts/small.gif", got.Image)
	assert.Empty(t, got.Comments)
}

func TestPostService_RejectsEmptyText(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	images := &fakeImages{}
	svc := NewPostService(e.posts, e.comments, e.groups, images)
	ctx := context.Background()

	for _, text := range []string{"", "   \n\t"} {
		_, err := svc.Create(ctx, author, PostInput{Text: text, ImageName: "a.png", Image: []byte("x")})
		assert.ErrorIs(t, err, ErrEmptyText)
	}
	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, images.stored)
}

func TestPostService_CreateValidatesGroupAndImage(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	ctx := context.Background()
	missing := uint(999)

	svc := NewPostService(e.posts, e.comments, e.groups, &fakeImages{})
	_, err := svc.Create(ctx, author, PostInput{Text: "text", GroupID: &missing})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	svc = NewPostService(e.posts, e.comments, e.groups, &fakeImages{err: media.ErrNotImage})
	_, err = svc.Create(ctx, author, PostInput{Text: "text", ImageName: "a.txt", Image: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidImage)

	svc = NewPostService(e.posts, e.comments, e.groups, &fakeImages{err: errors.New("bucket down")})
	_, err = svc.Create(ctx, author, PostInput{Text: "text", ImageName: "a.png", Image: []byte("x")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidImage)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostService_EditByNonAuthorLeavesPostUnchanged(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	other := e.user(t, "other")
	svc := NewPostService(e.posts, e.comments, e.groups, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{Text: "Исходный текст"})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, other, post.ID, PostInput{Text: "Чужая правка"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Edit(ctx, nil, post.ID, PostInput{Text: "Гость"})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Исходный текст", got.Text)
}

func TestPostService_EditByAuthor(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	group := e.group(t, "g")
	svc := NewPostService(e.posts, e.comments, e.groups, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{Text: "old", GroupID: &group.ID})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, author, post.ID, PostInput{Text: " "})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.Edit(ctx, author, post.ID, PostInput{Text: "new"})
	require.NoError(t, err)
	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Nil(t, got.GroupID)

	_, err = svc.Edit(ctx, author, 12345, PostInput{Text: "x"})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostService_Delete(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	other := e.user(t, "other")
	svc := NewPostService(e.posts, e.comments, e.groups, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{Text: "text"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, other, post.ID, "comment")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, other, post.ID), ErrForbidden)
	n, _ := svc.Count(ctx)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.Delete(ctx, author, post.ID))
	n, _ = svc.Count(ctx)
	assert.Zero(t, n)
	var comments int64
	require.NoError(t, e.db.Model(&model.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)

	assert.ErrorIs(t, svc.Delete(ctx, author, post.ID), ErrPostNotFound)
}

func TestPostService_AddComment(t *testing.T) {
	e := newTestEnv(t)
	author := e.user(t, "auth")
	reader := e.user(t, "reader")
	svc := NewPostService(e.posts, e.comments, e.groups, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, author, PostInput{Text: "text"})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, reader, post.ID, "  Тестовый комментарий ")
	require.NoError(t, err)
	assert.Equal(t, "Тестовый комментарий", c.Text)

	_, err = svc.AddComment(ctx, reader, post.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = svc.AddComment(ctx, reader, 999, "text")
	assert.ErrorIs(t, err, ErrPostNotFound)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "reader", got.Comments[0].Author.Username)
}
