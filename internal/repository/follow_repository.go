package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/yatube/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, userID, authorID uint) error
	Delete(ctx context.Context, userID, authorID uint) error
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	ListFollowings(ctx context.Context, userID uint, offset, limit int) ([]*model.Follow, error)
	ListFollowers(ctx context.Context, authorID uint, offset, limit int) ([]*model.Follow, error)
	CountFollowings(ctx context.Context, userID uint) (int64, error)
	CountFollowers(ctx context.Context, authorID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, userID, authorID uint) error {
	f := &model.Follow{UserID: userID, AuthorID: authorID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "author_id"}}, DoNothing: true}).
		Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowings(ctx context.Context, userID uint, offset, limit int) ([]*model.Follow, error) {
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, authorID uint, offset, limit int) ([]*model.Follow, error) {
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) CountFollowings(ctx context.Context, userID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("author_id = ?", authorID).Count(&cnt).Error
	return cnt, err
}
