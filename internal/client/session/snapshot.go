// Package session keeps the client-side record of who is signed in and
// where they are in the sign-in flow. A Manager owns the current
// Snapshot, persists it through a Store and fans changes out to local
// subscribers and, through a Broadcaster, to other processes.
package session

import "strings"

// View is the screen the auth flow is showing.
type View string

const (
	ViewLogin     View = "login"
	ViewRegister  View = "register"
	ViewOTP       View = "otp"
	ViewDashboard View = "dashboard"
)

// Valid reports whether v is one of the four known views.
func (v View) Valid() bool {
	switch v {
	case ViewLogin, ViewRegister, ViewOTP, ViewDashboard:
		return true
	}
	return false
}

// ParseView maps user input to a View; unknown input yields "".
func ParseView(s string) View {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return ""
	}
	return v
}

// User is the normalized identity kept in a Snapshot.
type User struct {
	ID          string `json:"id,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullname,omitempty"`
	IsVerified  bool   `json:"isVerified"`
}

// Snapshot is the persisted session. The zero value means signed out.
type Snapshot struct {
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	IsVerified  bool   `json:"isVerified"`
	View        View   `json:"currentView,omitempty"`
}

// Empty reports whether s carries no session at all.
func (s Snapshot) Empty() bool {
	return s.User == nil && s.AccessToken == ""
}

// Verified reports whether s is a usable signed-in session.
func (s Snapshot) Verified() bool {
	return s.IsVerified && s.AccessToken != ""
}

// Pending reports whether s is a registration awaiting its OTP.
func (s Snapshot) Pending() bool {
	return !s.IsVerified && s.AccessToken == "" && s.User != nil && s.User.PhoneNumber != ""
}
