package auth

import "errors"

var (
	ErrInvalidCredentials            = errors.New("invalid credentials")
	ErrEmailAlreadyExists            = errors.New("email already exists")
	ErrUserNotFound                  = errors.New("user not found")
	ErrInvalidVerificationCode       = errors.New("invalid verification code")
	ErrInvalidVerificationCodeFormat = errors.New("invalid verification code format")
	ErrTooManyVerificationAttempts   = errors.New("too many verification attempts")
)
