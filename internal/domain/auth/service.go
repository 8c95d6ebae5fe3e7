package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultVerifyCodeTTL = 24 * time.Hour

	// a code is burned after this many wrong guesses until a resend
	maxVerifyAttempts = 5
)

type tokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
}

// Service is the identity collaborator: it owns users and issues the bearer
// tokens the rest of the API authenticates with.
type Service struct {
	users         UserRepository
	jwt           tokenIssuer
	mailer        Mailer
	pepper        string
	verifyCodeTTL time.Duration
	log           *zap.Logger
}

type LoginResult struct {
	User        *User
	AccessToken string
}

func NewService(users UserRepository, jwt tokenIssuer, mailer Mailer, pepper string, verifyCodeTTL time.Duration) *Service {
	if verifyCodeTTL <= 0 {
		verifyCodeTTL = defaultVerifyCodeTTL
	}
	return &Service{
		users:         users,
		jwt:           jwt,
		mailer:        mailer,
		pepper:        pepper,
		verifyCodeTTL: verifyCodeTTL,
		log:           zap.L().Named("auth"),
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: token}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, req VerifyRequest) error {
	if !codeRegex.MatchString(req.Code) {
		return ErrInvalidVerificationCodeFormat
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidVerificationCode
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	if user.VerificationAttempts >= maxVerifyAttempts {
		return ErrTooManyVerificationAttempts
	}
	if user.VerificationExpiresAt == nil || !user.VerificationExpiresAt.After(time.Now()) {
		return ErrInvalidVerificationCode
	}
	want := []byte(user.VerificationCodeHash)
	got := []byte(hashVerificationCode(req.Code, s.pepper))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		if err := s.users.RecordFailedVerification(ctx, user.ID); err != nil {
			s.log.Warn("failed verification not counted", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return ErrInvalidVerificationCode
	}
	return s.users.MarkVerified(ctx, user.ID)
}

// ResendVerification issues a fresh code. Unknown or already verified
// emails succeed silently so the endpoint does not reveal accounts.
func (s *Service) ResendVerification(ctx context.Context, req ResendRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !user.EmailVerified {
		s.sendVerification(ctx, user)
	}
	return nil
}

// sendVerification never fails registration; delivery problems are logged.
func (s *Service) sendVerification(ctx context.Context, user *User) {
	code, err := generateVerificationCode()
	if err != nil {
		s.log.Warn("verification code generation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.users.SetVerificationCode(ctx, user.ID, hashVerificationCode(code, s.pepper), time.Now().Add(s.verifyCodeTTL)); err != nil {
		s.log.Warn("verification code not stored", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		s.log.Warn("verification email not sent", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
