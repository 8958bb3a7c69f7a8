package model

import (
	"strings"
	"time"
)

// User 站点用户
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(150);uniqueIndex;not null"`
	Email        string    `json:"email,omitempty" gorm:"type:varchar(254)"`
	FirstName    string    `json:"first_name,omitempty" gorm:"type:varchar(150)"`
	LastName     string    `json:"last_name,omitempty" gorm:"type:varchar(150)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}
