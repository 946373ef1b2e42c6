package service

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"golang.org/x/crypto/bcrypt"

	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPIssuer generates one-time codes, stores their bcrypt hash on the
// credential record and checks candidates against it.
type OTPIssuer struct {
	gen ports.OTPCodeGenerator
	ttl time.Duration
	now func() time.Time
}

func NewOTPIssuer(gen ports.OTPCodeGenerator, ttl time.Duration) *OTPIssuer {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPIssuer{gen: gen, ttl: ttl, now: time.Now}
}

// Issue replaces any pending OTP on user and returns the plaintext code.
// Delivering the code is the caller's responsibility.
func (i *OTPIssuer) Issue(user *domain.User) (string, error) {
	code, err := i.gen.Generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	user.OTP = &domain.OTP{
		CodeHash:  string(hash),
		ExpiresAt: i.now().Add(i.ttl).UTC(),
	}
	return code, nil
}

// Verify reports whether candidate matches the pending, unexpired OTP.
func (i *OTPIssuer) Verify(user *domain.User, candidate string) bool {
	if user == nil || !user.HasPendingOTP() {
		return false
	}
	if i.now().After(user.OTP.ExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.OTP.CodeHash), []byte(candidate)) == nil
}

// Clear drops the pending OTP unconditionally.
func (i *OTPIssuer) Clear(user *domain.User) {
	user.OTP = nil
}

// StaticCodeGenerator always returns the same code. It mirrors the
// placeholder behaviour of an SMS-less development setup and must not be
// used in production.
type StaticCodeGenerator struct {
	Code string
}

func (g StaticCodeGenerator) Generate() (string, error) {
	if err := domain.ValidateOTPCode(g.Code); err != nil {
		return "", fmt.Errorf("static otp code: %w", err)
	}
	return g.Code, nil
}

// HOTPCodeGenerator derives a six digit code from a fresh random HOTP
// secret on every call.
type HOTPCodeGenerator struct{}

var errShortRead = errors.New("short read from random source")

func (HOTPCodeGenerator) Generate() (string, error) {
	secret := make([]byte, 20)
	n, err := rand.Read(secret)
	if err != nil {
		return "", err
	}
	if n != len(secret) {
		return "", errShortRead
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
	return hotp.GenerateCodeCustom(encoded, uint64(time.Now().UnixNano()), hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// NewCodeGenerator picks a generator by mode ("static" or "hotp").
func NewCodeGenerator(mode, staticCode string) (ports.OTPCodeGenerator, error) {
	switch mode {
	case "", "hotp":
		return HOTPCodeGenerator{}, nil
	case "static":
		return StaticCodeGenerator{Code: staticCode}, nil
	default:
		return nil, fmt.Errorf("unknown otp mode %q", mode)
	}
}
