package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/service"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httputil"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
	"github.com/Upendra-HQ/professional-backend-code/pkg/validator"
)

// SessionAuthority is the session surface the handlers depend on.
// *service.SessionService implements it.
type SessionAuthority interface {
	Login(ctx context.Context, input service.LoginInput) (*domain.LoginResult, error)
	Refresh(ctx context.Context, presented string) (*domain.SessionPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// AuthHandler handles HTTP requests for session endpoints.
type AuthHandler struct {
	sessions SessionAuthority
	cookies  CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(sessions SessionAuthority, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login. Either username or
// email identifies the account.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshRequest is the optional JSON body of a refresh. The cookie takes
// precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password,nefield=OldPassword"`
}

// --- Response types ---

// LoginResponse carries the user and both tokens. The tokens are also set
// as cookies.
type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// TokenResponse carries a refreshed token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// --- Handlers ---

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.sessions.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSession(w, result.Session)
	httputil.WriteSuccess(w, http.StatusOK, LoginResponse{
		User:         result.User,
		AccessToken:  result.Session.AccessToken,
		RefreshToken: result.Session.RefreshToken,
	}, "user logged in successfully")
}

// Refresh handles POST /api/v1/users/refresh-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(RefreshCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshRequest
		r.Body = http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httputil.WriteValidationError(w, errors.New("invalid JSON body"))
			return
		}
		presented = req.RefreshToken
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			h.cookies.clearSession(w)
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setSession(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clearSession(w)
	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "user logged out")
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.sessions.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "password changed successfully")
}

// Authenticator returns the middleware guarding authenticated routes. The
// access cookie wins over an Authorization header.
func Authenticator(sessions SessionAuthority, logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Auth(middleware.AuthOptions{
		CookieName: AccessCookie,
		Logger:     logger,
		Resolve: func(ctx context.Context, token string) (*middleware.Principal, error) {
			user, err := sessions.Authenticate(ctx, token)
			if err != nil {
				return nil, err
			}
			return &middleware.Principal{UserID: user.ID, Username: user.Username, Value: user}, nil
		},
	})
}
