package ports

import (
	"context"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// UserRepository is the Credential Store. Implementations enforce phone
// number uniqueness themselves; callers never check-then-insert.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// Create inserts a new record. A duplicate phone number yields
	// domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpdatePendingOTP overwrites the pending OTP of an unverified record and,
	// when fullName is non-empty, its display name. If the record is already
	// verified it returns domain.ErrUserExists.
	UpdatePendingOTP(ctx context.Context, id, fullName string, otp domain.OTP) error

	// MarkVerified flips is_verified and clears the OTP, but only while the
	// stored hash still equals codeHash. Otherwise it returns domain.ErrInvalidOTP.
	MarkVerified(ctx context.Context, id, codeHash string) (*domain.User, error)
}
