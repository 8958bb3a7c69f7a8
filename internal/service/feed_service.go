package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
	"github.com/d60-Lab/yatube/pkg/paginator"
)

// FeedService 组装各类帖子列表，全部按发布时间倒序分页
type FeedService interface {
	Index(ctx context.Context, page int) (*paginator.Page[model.Post], error)
	Group(ctx context.Context, slug string, page int) (*model.Group, *paginator.Page[model.Post], error)
	Profile(ctx context.Context, username string, page int) (*model.User, *paginator.Page[model.Post], error)
	Following(ctx context.Context, viewerID uint, page int) (*paginator.Page[model.Post], error)
}

type feedService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	pageSize int
}

func NewFeedService(posts repository.PostRepository, groups repository.GroupRepository, users repository.UserRepository, pageSize int) FeedService {
	if pageSize < 1 {
		pageSize = 10
	}
	return &feedService{posts: posts, groups: groups, users: users, pageSize: pageSize}
}

func (s *feedService) Index(ctx context.Context, page int) (*paginator.Page[model.Post], error) {
	return s.paginate(ctx, repository.PostFilter{}, page)
}

func (s *feedService) Group(ctx context.Context, slug string, page int) (*model.Group, *paginator.Page[model.Post], error) {
	g, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGroupNotFound
		}
		return nil, nil, fmt.Errorf("get group %q: %w", slug, err)
	}
	p, err := s.paginate(ctx, repository.PostFilter{GroupID: g.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return g, p, nil
}

func (s *feedService) Profile(ctx context.Context, username string, page int) (*model.User, *paginator.Page[model.Post], error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get user %q: %w", username, err)
	}
	p, err := s.paginate(ctx, repository.PostFilter{AuthorID: u.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return u, p, nil
}

// Following 只包含 viewer 关注的作者的帖子
func (s *feedService) Following(ctx context.Context, viewerID uint, page int) (*paginator.Page[model.Post], error) {
	return s.paginate(ctx, repository.PostFilter{FollowerID: viewerID}, page)
}

func (s *feedService) paginate(ctx context.Context, filter repository.PostFilter, page int) (*paginator.Page[model.Post], error) {
	w := paginator.NewWindow(page, s.pageSize)
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	var items []model.Post
	if int64(w.Offset) < total {
		items, err = s.posts.List(ctx, filter, w.Offset, w.Size)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
	}
	return paginator.NewPage(w, total, items), nil
}
