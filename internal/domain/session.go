package domain

import "time"

// TokenKind distinguishes the two token classes. Each class is signed with
// its own secret.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// SessionPair is the credential pair handed to a client at login and refresh.
type SessionPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User    *User        `json:"user"`
	Session *SessionPair `json:"session"`
}
