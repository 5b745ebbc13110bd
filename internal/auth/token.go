package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
)

// ClaimsVersion is the only payload schema this codec issues and accepts.
const ClaimsVersion = 1

// Claims is the versioned token payload. The subject is the user id.
type Claims struct {
	Version  int              `json:"ver"`
	Kind     domain.TokenKind `json:"typ"`
	Username string           `json:"username,omitempty"`
	Email    string           `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenConfig is the immutable codec configuration. Access and refresh
// tokens are signed with different secrets so neither class can stand in
// for the other.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenManager issues and verifies session tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager validates cfg and returns a codec.
func NewTokenManager(cfg TokenConfig, opts ...Option) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("token secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("token lifetimes must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "channelhub"
	}

	m := &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// IssueAccess signs an access token for u.
func (m *TokenManager) IssueAccess(u *domain.User) (string, time.Time, error) {
	claims := m.claims(domain.TokenAccess, u.ID, m.accessTTL)
	claims.Username = u.Username
	claims.Email = u.Email
	return m.sign(claims, m.accessSecret)
}

// IssueRefresh signs a refresh token carrying only the subject.
func (m *TokenManager) IssueRefresh(userID string) (string, time.Time, error) {
	return m.sign(m.claims(domain.TokenRefresh, userID, m.refreshTTL), m.refreshSecret)
}

// IssuePair signs a fresh access and refresh token for u.
func (m *TokenManager) IssuePair(u *domain.User) (*domain.SessionPair, error) {
	access, accessExp, err := m.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	return &domain.SessionPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks an access token. Failures wrap domain.ErrTokenExpired
// or domain.ErrTokenInvalid.
func (m *TokenManager) VerifyAccess(raw string) (*Claims, error) {
	return m.verify(raw, domain.TokenAccess, m.accessSecret)
}

// VerifyRefresh checks a refresh token. Failures wrap domain.ErrTokenExpired
// or domain.ErrTokenInvalid.
func (m *TokenManager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verify(raw, domain.TokenRefresh, m.refreshSecret)
}

func (m *TokenManager) claims(kind domain.TokenKind, subject string, ttl time.Duration) *Claims {
	now := m.now().UTC()
	return &Claims{
		Version: ClaimsVersion,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *TokenManager) sign(claims *Claims, secret []byte) (string, time.Time, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (m *TokenManager) verify(raw string, kind domain.TokenKind, secret []byte) (*Claims, error) {
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		// The signature is checked before the claims, so an expired
		// verdict implies the token was genuine.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %s token: %v", domain.ErrTokenExpired, kind, err)
		}
		return nil, fmt.Errorf("%w: %s token: %v", domain.ErrTokenInvalid, kind, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %s token claims", domain.ErrTokenInvalid, kind)
	}
	if claims.Version != ClaimsVersion {
		return nil, fmt.Errorf("%w: unsupported claims version %d", domain.ErrTokenInvalid, claims.Version)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", domain.ErrTokenInvalid, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %s token has no subject", domain.ErrTokenInvalid, kind)
	}

	return claims, nil
}

// Fingerprint returns the hex SHA-256 of a token. Only fingerprints of
// refresh tokens are persisted.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// FingerprintsEqual compares two fingerprints in constant time.
func FingerprintsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
