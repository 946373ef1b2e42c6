package domain

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrUserExists      = errors.New("user with this phone number already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserNotVerified = errors.New("please verify your phone number first")
	ErrInvalidOTP      = errors.New("invalid or expired OTP")
	ErrInvalidToken    = errors.New("invalid access token")
	ErrUnauthorized    = errors.New("unauthorized request")
	ErrMessageNotFound = errors.New("message not found")
)

// ValidationError describes a single rejected input field. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
