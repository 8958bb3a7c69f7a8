package model

import (
	"time"
	"unicode/utf8"
)

const excerptLength = 15

// Post 内容主体
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index:idx_post_author_created,priority:1"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID   *uint     `json:"group_id,omitempty" gorm:"index"`
	Group     *Group    `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image     string    `json:"image,omitempty" gorm:"type:varchar(255)"`
	Comments  []Comment `json:"comments,omitempty" gorm:"foreignKey:PostID"`
	CreatedAt time.Time `json:"created_at" gorm:"index;index:idx_post_author_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// Excerpt returns the first 15 characters of the text.
func (p Post) Excerpt() string {
	if utf8.RuneCountInString(p.Text) <= excerptLength {
		return p.Text
	}
	return string([]rune(p.Text)[:excerptLength])
}

func (p Post) String() string { return "«" + p.Excerpt() + "...»" }
