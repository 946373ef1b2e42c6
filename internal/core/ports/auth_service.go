package ports

import (
	"context"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// AuthResult is returned by every operation that issues a bearer token.
type AuthResult struct {
	User        *domain.User
	AccessToken string
}

type AuthService interface {
	// Register creates or reuses an unverified record and issues a new OTP.
	// It doubles as the resend endpoint.
	Register(ctx context.Context, phone, fullName string) (*domain.User, error)
	VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error)
	Login(ctx context.Context, phone string) (*AuthResult, error)
}

// Authenticator resolves a bearer token to a verified user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}
