package domain

import (
	"strings"
	"time"
)

// User is a registered account. One user owns exactly one channel, addressed
// by its username.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Fullname     string `json:"fullname"`
	Avatar       string `json:"avatar"`
	CoverImage   string `json:"coverImage"`
	PasswordHash string `json:"-"`
	// RefreshTokenHash is the SHA-256 of the only refresh token that may be
	// redeemed for this user. Empty when no session is active.
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasSession reports whether a refresh token is currently outstanding.
func (u *User) HasSession() bool {
	return u.RefreshTokenHash != ""
}

// Public returns a copy of u with every credential field cleared.
func (u *User) Public() *User {
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshTokenHash = ""
	return &cp
}

// NormalizeUsername lower-cases and trims a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UserFields lists the profile columns that may change after registration.
// Nil pointers are left untouched.
type UserFields struct {
	Fullname     *string
	Email        *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
	// ClearRefreshToken revokes the outstanding session in the same write.
	ClearRefreshToken bool
}

// IsEmpty reports whether f would change nothing.
func (f UserFields) IsEmpty() bool {
	return f.Fullname == nil && f.Email == nil && f.Avatar == nil &&
		f.CoverImage == nil && f.PasswordHash == nil && !f.ClearRefreshToken
}
