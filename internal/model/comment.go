package model

import "time"

// Comment 帖子下的评论，只增不改
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	PostID    uint      `json:"post_id" gorm:"not null;index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
