package domain

import (
	"regexp"
	"strings"
)

const (
	MinFullNameLength = 3
	MaxFullNameLength = 50
	OTPLength         = 6
)

// phonePattern is the regional 10-digit mobile format: first digit 6-9.
var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// IsValidPhone reports whether phone is a well-formed login key.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidatePhone checks presence and format of a phone number.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return NewValidationError("phoneNumber", "phone number is required")
	}
	if !IsValidPhone(phone) {
		return NewValidationError("phoneNumber", "please enter a valid 10-digit phone number")
	}
	return nil
}

// ValidateFullName checks the trimmed length bounds of a display name.
func ValidateFullName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	switch {
	case n == 0:
		return NewValidationError("fullname", "full name is required")
	case n < MinFullNameLength:
		return NewValidationError("fullname", "full name must be at least 3 characters long")
	case n > MaxFullNameLength:
		return NewValidationError("fullname", "full name cannot exceed 50 characters")
	}
	return nil
}

// ValidateOTPCode checks that code is exactly six digits.
func ValidateOTPCode(code string) error {
	if !otpPattern.MatchString(code) {
		return NewValidationError("otp", "please enter the complete 6-digit OTP")
	}
	return nil
}
