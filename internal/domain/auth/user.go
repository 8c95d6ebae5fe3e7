package auth

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID                    int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email                 string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash          string     `gorm:"column:password_hash;not null" json:"-"`
	Name                  string     `gorm:"column:name" json:"name"`
	Role                  UserRole   `gorm:"column:role;default:user" json:"role"`
	EmailVerified         bool       `gorm:"column:email_verified" json:"email_verified"`
	VerificationCodeHash  string     `gorm:"column:verification_code_hash" json:"-"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at" json:"-"`
	VerificationAttempts  int        `gorm:"column:verification_attempts;not null;default:0" json:"-"`
	CreatedAt             time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }
