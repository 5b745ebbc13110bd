package domain

import "errors"

// Session failure kinds. Callers distinguish them with errors.Is.
var (
	ErrMissingToken = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked means the refresh token verified but is no longer the
	// one on record: it was rotated, logged out, or lost a concurrent refresh.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrBadCredential covers both an unknown identity and a wrong password
	// at login. They must not be distinguishable from outside.
	ErrBadCredential = errors.New("invalid credentials")
	// ErrIdentityNotFound means a verified token names a user that no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
)
