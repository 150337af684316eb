package storage

import "errors"

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token is expired")
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrSubjectExists    = errors.New("subject already exists")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrSecretNotFound   = errors.New("secret not found")
)
