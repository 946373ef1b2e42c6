package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

// AuthService implements phone registration, OTP verification and
// passwordless login.
type AuthService struct {
	repo   ports.UserRepository
	otp    *OTPIssuer
	tokens ports.TokenIssuer
	sender ports.OTPSender
	log    zerolog.Logger
}

func NewAuthService(
	repo ports.UserRepository,
	otp *OTPIssuer,
	tokens ports.TokenIssuer,
	sender ports.OTPSender,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{repo: repo, otp: otp, tokens: tokens, sender: sender, log: log}
}

// Register creates a record for an unknown phone number or reuses an
// unverified one, then issues a fresh OTP. A verified number is rejected
// with domain.ErrUserExists.
func (s *AuthService) Register(ctx context.Context, phone, fullName string) (*domain.User, error) {
	phone = strings.TrimSpace(phone)
	fullName = strings.TrimSpace(fullName)
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPhone(ctx, phone)
	switch {
	case err == nil && existing.IsVerified:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	case err == nil:
		return s.reissue(ctx, existing, fullName)
	}

	if err := domain.ValidateFullName(fullName); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		FullName:    fullName,
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	code, err := s.otp.Issue(user)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, created.PhoneNumber, code)
	s.log.Info().Str("phone", phone).Str("user_id", created.ID).Msg("user registered")
	return created.Public(), nil
}

// reissue overwrites the pending OTP of an unverified record. This is the
// resend path.
func (s *AuthService) reissue(ctx context.Context, user *domain.User, fullName string) (*domain.User, error) {
	if fullName != "" {
		if err := domain.ValidateFullName(fullName); err != nil {
			return nil, err
		}
	}

	code, err := s.otp.Issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePendingOTP(ctx, user.ID, fullName, *user.OTP); err != nil {
		return nil, err
	}
	if fullName != "" {
		user.FullName = fullName
	}

	s.deliver(ctx, user.PhoneNumber, code)
	s.log.Info().Str("phone", user.PhoneNumber).Str("user_id", user.ID).Msg("otp reissued")
	return user.Public(), nil
}

// VerifyOTP checks the candidate code, marks the record verified, clears
// the OTP and issues a bearer token.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*ports.AuthResult, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, domain.NewValidationError("otp", "phone number and OTP are required")
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !s.otp.Verify(user, code) {
		s.log.Debug().Str("phone", phone).Msg("otp rejected")
		return nil, domain.ErrInvalidOTP
	}

	verified, err := s.repo.MarkVerified(ctx, user.ID, user.OTP.CodeHash)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(verified.ID, verified.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info().Str("phone", phone).Str("user_id", verified.ID).Msg("phone verified")
	return &ports.AuthResult{User: verified.Public(), AccessToken: token}, nil
}

// Login issues a token for a verified phone number. No second factor is
// asked for once the number has been verified.
func (s *AuthService) Login(ctx context.Context, phone string) (*ports.AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, domain.ErrUserNotVerified
	}

	token, err := s.tokens.Issue(user.ID, user.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.AuthResult{User: user.Public(), AccessToken: token}, nil
}

// Authenticate resolves a bearer token to its verified credential record.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsVerified {
		return nil, domain.ErrUserNotVerified
	}
	return user.Public(), nil
}

// deliver hands the code to the sender. A failed delivery never fails the
// registration; the user can ask for a resend.
func (s *AuthService) deliver(ctx context.Context, phone, code string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		s.log.Warn().Err(err).Str("phone", phone).Msg("otp delivery failed")
	}
}
