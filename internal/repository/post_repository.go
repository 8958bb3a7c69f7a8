package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/internal/model"
)

// PostFilter 限定 feed 的范围；零值表示全部帖子
type PostFilter struct {
	GroupID  uint
	AuthorID uint
	// FollowerID 只保留该用户关注的作者的帖子
	FollowerID uint
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, filter PostFilter) (int64, error)
	List(ctx context.Context, filter PostFilter, offset, limit int) ([]model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit("Author", "Group", "Comments").Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]any{"text": post.Text, "group_id": post.GroupID, "image": post.Image}).Error
}

// Delete 在一个事务内删除帖子及其评论
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	var cnt int64
	err := r.scoped(ctx, filter).Model(&model.Post{}).Count(&cnt).Error
	return cnt, err
}

// List 按发布时间倒序返回一页帖子，id 作为同一时间戳下的稳定排序
func (r *postRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]model.Post, error) {
	var res []model.Post
	err := r.scoped(ctx, filter).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC, posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) scoped(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if f.GroupID != 0 {
		q = q.Where("posts.group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		following := r.db.WithContext(ctx).Model(&model.Follow{}).Select("author_id").Where("user_id = ?", f.FollowerID)
		q = q.Where("posts.author_id IN (?)", following)
	}
	return q
}
