// Package memory holds in-process stores used for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otpchat/chat-api/internal/core/domain"
)

// UserRepository is a mutex-guarded Credential Store keyed by phone number.
type UserRepository struct {
	mu      sync.RWMutex
	byPhone map[string]*domain.User
	byID    map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byPhone: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.OTP != nil {
		otp := *u.OTP
		clone.OTP = &otp
	}
	return &clone
}

func (r *UserRepository) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byPhone[phone]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPhone[user.PhoneNumber]; exists {
		return nil, domain.ErrUserExists
	}

	stored := cloneUser(user)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.byPhone[stored.PhoneNumber] = stored
	r.byID[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *UserRepository) UpdatePendingOTP(_ context.Context, id, fullName string, otp domain.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.IsVerified {
		return domain.ErrUserExists
	}

	u.OTP = &otp
	if fullName != "" {
		u.FullName = fullName
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) MarkVerified(_ context.Context, id, codeHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.OTP == nil || u.OTP.CodeHash != codeHash {
		return nil, domain.ErrInvalidOTP
	}

	u.IsVerified = true
	u.OTP = nil
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}
