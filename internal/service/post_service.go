package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/internal/media"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
)

// ImageStore persists an uploaded image and returns its storage path.
type ImageStore interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// PostInput 创建/编辑帖子的表单数据
type PostInput struct {
	Text      string
	GroupID   *uint
	ImageName string
	Image     []byte
}

type PostService interface {
	Create(ctx context.Context, author *model.User, in PostInput) (*model.Post, error)
	Get(ctx context.Context, id uint) (*model.Post, error)
	Edit(ctx context.Context, requester *model.User, id uint, in PostInput) (*model.Post, error)
	Delete(ctx context.Context, requester *model.User, id uint) error
	AddComment(ctx context.Context, author *model.User, postID uint, text string) (*model.Comment, error)
	Count(ctx context.Context) (int64, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	Groups(ctx context.Context) ([]*model.Group, error)
}

type postService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	groups   repository.GroupRepository
	images   ImageStore
}

// NewPostService; images may be nil when uploads are disabled.
func NewPostService(posts repository.PostRepository, comments repository.CommentRepository, groups repository.GroupRepository, images ImageStore) PostService {
	return &postService{posts: posts, comments: comments, groups: groups, images: images}
}

func (s *postService) Create(ctx context.Context, author *model.User, in PostInput) (*model.Post, error) {
	post := &model.Post{AuthorID: author.ID}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = *author
	return post, nil
}

func (s *postService) Get(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	post.Comments = comments
	return post, nil
}

// Edit 仅作者可编辑；非作者返回 ErrForbidden 且不修改任何数据
func (s *postService) Edit(ctx context.Context, requester *model.User, id uint, in PostInput) (*model.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester == nil || post.AuthorID != requester.ID {
		return nil, ErrForbidden
	}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, requester *model.User, id uint) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if requester == nil || post.AuthorID != requester.ID {
		return ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func (s *postService) AddComment(ctx context.Context, author *model.User, postID uint, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}
	c := &model.Comment{Text: text, PostID: postID, AuthorID: author.ID}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	c.Author = *author
	return c, nil
}

func (s *postService) Count(ctx context.Context) (int64, error) {
	return s.posts.Count(ctx, repository.PostFilter{})
}

func (s *postService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.posts.Count(ctx, repository.PostFilter{AuthorID: authorID})
}

func (s *postService) Groups(ctx context.Context) ([]*model.Group, error) {
	return s.groups.List(ctx)
}

func (s *postService) find(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

// apply validates in and copies it onto post. The image is stored last so a
// rejected form never leaves an orphaned upload.
func (s *postService) apply(ctx context.Context, post *model.Post, in PostInput) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return ErrEmptyText
	}
	var group *model.Group
	if in.GroupID != nil {
		g, err := s.groups.GetByID(ctx, *in.GroupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return fmt.Errorf("get group %d: %w", *in.GroupID, err)
		}
		group = g
	}
	if len(in.Image) > 0 {
		if s.images == nil {
			return ErrInvalidImage
		}
		key, err := s.images.Store(ctx, in.ImageName, in.Image)
		if err != nil {
			if errors.Is(err, media.ErrNotImage) {
				return fmt.Errorf("%w: %v", ErrInvalidImage, err)
			}
			return fmt.Errorf("store image: %w", err)
		}
		post.Image = key
	}
	post.Text = text
	post.GroupID = in.GroupID
	post.Group = group
	return nil
}
