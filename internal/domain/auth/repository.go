package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"productlogik/internal/database"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	SetVerificationCode(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, userID int64) error
	RecordFailedVerification(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if database.IsUniqueViolation(err) {
		return ErrEmailAlreadyExists
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) SetVerificationCode(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"verification_code_hash":  codeHash,
		"verification_expires_at": expiresAt,
		"verification_attempts":   0,
		"updated_at":              time.Now(),
	}).Error
}

func (r *userRepository) MarkVerified(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"email_verified":          true,
		"verification_code_hash":  "",
		"verification_expires_at": nil,
		"verification_attempts":   0,
		"updated_at":              time.Now(),
	}).Error
}

func (r *userRepository) RecordFailedVerification(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).
		UpdateColumn("verification_attempts", gorm.Expr("verification_attempts + 1")).Error
}
