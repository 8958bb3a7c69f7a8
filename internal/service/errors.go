package service

import "errors"

var (
	ErrEmptyText          = errors.New("text must not be empty")
	ErrForbidden          = errors.New("only the author may change this post")
	ErrPostNotFound       = errors.New("post not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidImage       = errors.New("invalid image")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password is too short")
)
