package domain

import "time"

// User is the credential record keyed by phone number.
type User struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullname"`
	PhoneNumber string    `json:"phoneNumber"`
	IsVerified  bool      `json:"isVerified"`
	OTP         *OTP      `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OTP is a pending one-time password. Only the hash is ever stored.
type OTP struct {
	CodeHash  string
	ExpiresAt time.Time
}

// HasPendingOTP reports whether a verification is outstanding.
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTP.CodeHash != "" && !u.OTP.ExpiresAt.IsZero()
}

// Public returns a copy of u without the OTP sub-record.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.OTP = nil
	return &clone
}

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID      string
	PhoneNumber string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
