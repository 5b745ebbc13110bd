package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Upendra-HQ/professional-backend-code/internal/auth"
	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/limiter"
	"github.com/Upendra-HQ/professional-backend-code/internal/repository"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

// Error codes carried by session failures.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// invalidCredentialsMessage is shared by every login failure so an unknown
// account reads exactly like a wrong password.
const invalidCredentialsMessage = "invalid username, email or password"

// SessionConfig is fixed at construction.
type SessionConfig struct {
	// RevokeOnPasswordChange clears the outstanding refresh token in the
	// same write that stores the new password hash.
	RevokeOnPasswordChange bool
}

// SessionService issues, rotates and revokes sessions.
type SessionService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	hasher   *auth.PasswordHasher
	throttle LoginThrottle
	events   EventPublisher
	cfg      SessionConfig
	logger   *slog.Logger
}

// NewSessionService creates a session service. A nil throttle or
// publisher disables that concern.
func NewSessionService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	throttle LoginThrottle,
	events EventPublisher,
	cfg SessionConfig,
	logger *slog.Logger,
) *SessionService {
	if throttle == nil {
		throttle = noopThrottle{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &SessionService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		throttle: throttle,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginInput holds the parameters for a login. Either Username or Email
// identifies the account.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

func (in LoginInput) identifier() string {
	if u := domain.NormalizeUsername(in.Username); u != "" {
		return u
	}
	return domain.NormalizeEmail(in.Email)
}

// Login verifies a password and starts a new session, replacing any
// previous one.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (_ *domain.LoginResult, err error) {
	defer func() { observe("login", err) }()

	username := domain.NormalizeUsername(input.Username)
	email := domain.NormalizeEmail(input.Email)
	if username == "" && email == "" {
		return nil, apperrors.InvalidInput("username or email is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	id := input.identifier()
	if err := s.throttle.Check(ctx, id); err != nil {
		if errors.Is(err, limiter.ErrLimited) {
			s.logger.WarnContext(ctx, "login throttled", slog.String("identifier", id))
			return nil, apperrors.TooManyRequests("too many failed login attempts, try again later")
		}
		return nil, err
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if !isNotFound(err) {
			return nil, storeError(err)
		}
		s.hasher.Burn(input.Password)
		s.throttle.RecordFailure(ctx, id)
		s.logger.InfoContext(ctx, "login rejected", slog.String("reason", "unknown identity"))
		return nil, apperrors.AuthFailure(CodeInvalidCredentials, invalidCredentialsMessage, domain.ErrBadCredential)
	}

	if !s.hasher.Matches(input.Password, user.PasswordHash) {
		s.throttle.RecordFailure(ctx, id)
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("reason", "wrong password"),
			slog.String("user_id", user.ID),
		)
		return nil, apperrors.AuthFailure(CodeInvalidCredentials, invalidCredentialsMessage, domain.ErrBadCredential)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, auth.Fingerprint(pair.RefreshToken)); err != nil {
		return nil, storeError(err)
	}
	s.throttle.Reset(ctx, id)

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &domain.LoginResult{User: user.Public(), Session: pair}, nil
}

// Refresh redeems a refresh token for a new pair. The presented token stops
// working once this returns, and of several concurrent calls presenting the
// same token only one succeeds.
func (s *SessionService) Refresh(ctx context.Context, presented string) (_ *domain.SessionPair, err error) {
	defer func() { observe("refresh", err) }()

	presented = strings.TrimSpace(presented)
	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, s.tokenFailure(ctx, "refresh", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if isNotFound(err) {
			return nil, s.vanished(ctx, "refresh", claims.UserID())
		}
		return nil, storeError(err)
	}

	current := auth.Fingerprint(presented)
	if !user.HasSession() || !auth.FingerprintsEqual(user.RefreshTokenHash, current) {
		return nil, s.revoked(ctx, user.ID)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	swapped, err := s.users.RotateRefreshToken(ctx, user.ID, current, auth.Fingerprint(pair.RefreshToken))
	if err != nil {
		return nil, storeError(err)
	}
	if !swapped {
		return nil, s.revoked(ctx, user.ID)
	}

	s.logger.InfoContext(ctx, "session refreshed", slog.String("user_id", user.ID))
	return pair, nil
}

// Logout revokes the user's session. Logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { observe("logout", err) }()

	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		if !isNotFound(err) {
			return storeError(err)
		}
		// Nothing left to revoke.
		return nil
	}

	if err := s.events.PublishLoggedOut(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user logged out event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	defer func() { observe("change_password", err) }()

	if oldPassword == "" {
		return apperrors.InvalidInput("old password is required")
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("new password must be at least %d characters", minPasswordLength))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return s.vanished(ctx, "change_password", userID)
		}
		return storeError(err)
	}

	if !s.hasher.Matches(oldPassword, user.PasswordHash) {
		s.logger.InfoContext(ctx, "password change rejected", slog.String("user_id", userID))
		return apperrors.AuthFailure(CodeInvalidCredentials, "invalid old password", domain.ErrBadCredential)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Internal(err)
	}

	fields := domain.UserFields{
		PasswordHash:      &digest,
		ClearRefreshToken: s.cfg.RevokeOnPasswordChange,
	}
	if _, err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return storeError(err)
	}

	if err := s.events.PublishPasswordChanged(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish password changed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", userID),
		slog.Bool("session_revoked", s.cfg.RevokeOnPasswordChange),
	)
	return nil
}

// Authenticate resolves an access token to its user. It performs one
// verification and one lookup and changes nothing.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, s.tokenFailure(ctx, "authenticate", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if isNotFound(err) {
			return nil, s.vanished(ctx, "authenticate", claims.UserID())
		}
		return nil, storeError(err)
	}
	return user.Public(), nil
}

// tokenFailure maps a codec error to its client-facing kind.
func (s *SessionService) tokenFailure(ctx context.Context, op string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		appErr = apperrors.AuthFailure(CodeTokenMissing, "unauthorized request", err)
	case errors.Is(err, domain.ErrTokenExpired):
		appErr = apperrors.AuthFailure(CodeTokenExpired, "token has expired", err)
	default:
		appErr = apperrors.AuthFailure(CodeTokenInvalid, "invalid token", err)
	}
	s.logger.DebugContext(ctx, "token rejected",
		slog.String("operation", op),
		slog.String("code", appErr.Code),
		slog.String("error", err.Error()),
	)
	return appErr
}

func (s *SessionService) revoked(ctx context.Context, userID string) error {
	s.logger.WarnContext(ctx, "refresh token no longer on record", slog.String("user_id", userID))
	return apperrors.AuthFailure(CodeTokenRevoked, "refresh token is expired or used", domain.ErrTokenRevoked)
}

func (s *SessionService) vanished(ctx context.Context, op, userID string) error {
	s.logger.InfoContext(ctx, "token subject not found",
		slog.String("operation", op),
		slog.String("user_id", userID),
	)
	return apperrors.AuthFailure(CodeUnauthorized, "invalid token", domain.ErrIdentityNotFound)
}
