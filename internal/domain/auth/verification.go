package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"

	"go.uber.org/zap"
)

var codeRegex = regexp.MustCompile(`^\d{6}$`)

// Mailer delivers account emails. Callers treat it as fire-and-forget:
// a delivery failure is logged and never fails the request.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

type DevConsoleMailer struct {
	enabled bool
	log     *zap.Logger
}

func NewDevConsoleMailer(enabled bool) *DevConsoleMailer {
	return &DevConsoleMailer{enabled: enabled, log: zap.L().Named("mailer")}
}

func (m *DevConsoleMailer) SendVerificationCode(_ context.Context, email, code string) error {
	if m.enabled {
		m.log.Info("[DEV-EMAIL] verification code", zap.String("email", email), zap.String("code", code))
	}
	return nil
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashVerificationCode(code, pepper string) string {
	h := sha256.Sum256([]byte(code + pepper))
	return hex.EncodeToString(h[:])
}
