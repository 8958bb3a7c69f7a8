package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
)

const minPasswordLength = 8

// RegisterInput 注册表单
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewAuthService; cost <= 0 means bcrypt.DefaultCost.
func NewAuthService(users repository.UserRepository, cost int) AuthService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &authService{users: users, bcryptCost: cost}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if err := checkmail.ValidateFormat(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate 用户名或密码错误统一返回 ErrInvalidCredentials
func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
