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

// FollowCounts 个人主页上展示的关注数/粉丝数
type FollowCounts struct {
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
}

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, userID, authorID uint) error
	Unfollow(ctx context.Context, userID, authorID uint) error
	FollowByUsername(ctx context.Context, userID uint, author string) (*model.User, error)
	UnfollowByUsername(ctx context.Context, userID uint, author string) (*model.User, error)
	IsFollowing(ctx context.Context, userID, authorID uint) (bool, error)
	ListFollowing(ctx context.Context, username string, page, pageSize int) ([]string, error)
	ListFollowers(ctx context.Context, username string, page, pageSize int) ([]string, error)
	Counts(ctx context.Context, userID uint) (FollowCounts, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewRelationshipService(followRepo repository.FollowRepository, userRepo repository.UserRepository) RelationshipService {
	return &relationshipService{followRepo: followRepo, userRepo: userRepo}
}

// Follow 关注自己是空操作，重复关注幂等
func (s *relationshipService) Follow(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return nil
	}
	if err := s.followRepo.Create(ctx, userID, authorID); err != nil {
		return fmt.Errorf("follow %d -> %d: %w", userID, authorID, err)
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, userID, authorID uint) error {
	if err := s.followRepo.Delete(ctx, userID, authorID); err != nil {
		return fmt.Errorf("unfollow %d -> %d: %w", userID, authorID, err)
	}
	return nil
}

func (s *relationshipService) FollowByUsername(ctx context.Context, userID uint, author string) (*model.User, error) {
	a, err := s.lookup(ctx, author)
	if err != nil {
		return nil, err
	}
	return a, s.Follow(ctx, userID, a.ID)
}

func (s *relationshipService) UnfollowByUsername(ctx context.Context, userID uint, author string) (*model.User, error) {
	a, err := s.lookup(ctx, author)
	if err != nil {
		return nil, err
	}
	return a, s.Unfollow(ctx, userID, a.ID)
}

func (s *relationshipService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 || userID == authorID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, userID, authorID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, username string, page, pageSize int) ([]string, error) {
	u, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	w := paginator.NewWindow(page, pageSize)
	items, err := s.followRepo.ListFollowings(ctx, u.ID, w.Offset, w.Size)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.Author.Username
	}
	return res, nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, username string, page, pageSize int) ([]string, error) {
	u, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	w := paginator.NewWindow(page, pageSize)
	items, err := s.followRepo.ListFollowers(ctx, u.ID, w.Offset, w.Size)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.User.Username
	}
	return res, nil
}

func (s *relationshipService) Counts(ctx context.Context, userID uint) (FollowCounts, error) {
	var c FollowCounts
	var err error
	if c.Following, err = s.followRepo.CountFollowings(ctx, userID); err != nil {
		return c, err
	}
	if c.Followers, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return c, err
	}
	return c, nil
}

func (s *relationshipService) lookup(ctx context.Context, username string) (*model.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}
