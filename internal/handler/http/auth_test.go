package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/service"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
)

// --- Login ---

func TestLogin_SetsSessionCookies(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Login", mock.Anything, service.LoginInput{Username: "alice", Password: "secret-pass"}).
		Return(&domain.LoginResult{User: alice, Session: testPair()}, nil)

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice",
		"password": "secret-pass",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "user logged in successfully", env.Message)
	assert.JSONEq(t, `"valid-access-token"`, string(mustField(t, env.Data, "accessToken")))
	assert.JSONEq(t, `"valid-refresh-token"`, string(mustField(t, env.Data, "refreshToken")))

	for name, value := range map[string]string{AccessCookie: validAccess, RefreshCookie: validRefresh} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, value, c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.Positive(t, c.MaxAge)
	}
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestLogin_ValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Contains(t, env.Errors, "password")
	s.sessions.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Login", mock.Anything, mock.Anything).
		Return(nil, apperrors.AuthFailure(service.CodeInvalidCredentials, "invalid username, email or password", domain.ErrBadCredential))

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever1",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, service.CodeInvalidCredentials, env.Code)
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
	assert.False(t, env.Success)
	assert.Nil(t, cookieByName(rec, AccessCookie))
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServerWithConfig(t, RouterConfig{
		ServiceName:   "channelhub-test",
		AuthRateLimit: middleware.RateLimitConfig{RPS: 0.001, Burst: 1},
	})
	s.sessions.On("Login", mock.Anything, mock.Anything).
		Return(nil, apperrors.AuthFailure(service.CodeInvalidCredentials, "invalid username, email or password", nil))

	body := map[string]string{"username": "alice", "password": "whatever1"}
	first := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", body))
	second := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", body))

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	s.sessions.AssertNumberOfCalls(t, "Login", 1)
}

// --- Refresh ---

func TestRefresh_CookieWinsOverBody(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Refresh", mock.Anything, "from-cookie").Return(testPair(), nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": "from-body"})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "from-cookie"})
	rec := s.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, validRefresh, cookieByName(rec, RefreshCookie).Value)
	s.sessions.AssertExpectations(t)
}

func TestRefresh_FromBody(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Refresh", mock.Anything, "from-body").Return(testPair(), nil)

	rec := s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": "from-body"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "access token refreshed", env.Message)
}

func TestRefresh_EmptyBodyIsMissingToken(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Refresh", mock.Anything, "").
		Return(nil, apperrors.AuthFailure(service.CodeTokenMissing, "unauthorized request", domain.ErrMissingToken))

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := s.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.CodeTokenMissing, decodeEnvelope(t, rec).Code)
}

func TestRefresh_RevokedClearsCookies(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Refresh", mock.Anything, "stale").
		Return(nil, apperrors.AuthFailure(service.CodeTokenRevoked, "refresh token is expired or used", domain.ErrTokenRevoked))

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "stale"})
	rec := s.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.CodeTokenRevoked, decodeEnvelope(t, rec).Code)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestRefresh_UnavailableKeepsCookies(t *testing.T) {
	s := newTestServer(t)
	s.sessions.On("Refresh", mock.Anything, "good").Return(nil, apperrors.Unavailable(errors.New("pool timeout")))

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "good"})
	rec := s.do(req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Nil(t, cookieByName(rec, RefreshCookie))
}

// --- Request authentication ---

func TestProtectedRoute_NoCredentials(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(jsonRequest(t, http.MethodGet, "/api/v1/users/current-user", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, service.CodeTokenMissing, env.Code)
	assert.False(t, env.Success)
	s.sessions.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestProtectedRoute_CookieWinsOverBearer(t *testing.T) {
	s := newTestServer(t)
	s.authenticated()
	s.accounts.On("GetCurrentUser", mock.Anything, "u-1").Return(alice, nil)

	req := withAccessCookie(jsonRequest(t, http.MethodGet, "/api/v1/users/current-user", nil))
	req.Header.Set("Authorization", "Bearer some-other-token")
	rec := s.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	s.sessions.AssertCalled(t, "Authenticate", mock.Anything, validAccess)
	s.sessions.AssertNumberOfCalls(t, "Authenticate", 1)
}

func TestProtectedRoute_BearerHeader(t *testing.T) {
	s := newTestServer(t)
	s.authenticated()
	s.accounts.On("GetCurrentUser", mock.Anything, "u-1").Return(alice, nil)

	req := jsonRequest(t, http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "bearer "+validAccess)
	rec := s.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `"alice"`, string(mustField(t, env.Data, "username")))
}

func TestProtectedRoute_FailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"expired", apperrors.AuthFailure(service.CodeTokenExpired, "token has expired", domain.ErrTokenExpired), service.CodeTokenExpired},
		{"invalid", apperrors.AuthFailure(service.CodeTokenInvalid, "invalid token", domain.ErrTokenInvalid), service.CodeTokenInvalid},
		{"subject vanished", apperrors.AuthFailure(service.CodeUnauthorized, "invalid token", domain.ErrIdentityNotFound), service.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.sessions.On("Authenticate", mock.Anything, "bad").Return(nil, tt.err)

			req := jsonRequest(t, http.MethodGet, "/api/v1/users/current-user", nil)
			req.Header.Set("Authorization", "Bearer bad")
			rec := s.do(req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, rec).Code)
		})
	}
}

// --- Logout ---

func TestLogout_ClearsCookies(t *testing.T) {
	s := newTestServer(t)
	s.authenticated()
	s.sessions.On("Logout", mock.Anything, "u-1").Return(nil)

	rec := s.do(withAccessCookie(jsonRequest(t, http.MethodPost, "/api/v1/users/logout", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "user logged out", env.Message)
	assert.JSONEq(t, `{}`, string(env.Data))
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.True(t, c.HttpOnly)
	}
	s.sessions.AssertExpectations(t)
}

// --- Change password ---

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	s.authenticated()
	s.sessions.On("ChangePassword", mock.Anything, "u-1", "OldPassw0rd", "NewPassw0rd").Return(nil)

	rec := s.do(withAccessCookie(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "OldPassw0rd",
		"newPassword": "NewPassw0rd",
	})))

	assert.Equal(t, http.StatusOK, rec.Code)
	s.sessions.AssertExpectations(t)
}

func TestChangePassword_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"weak new password", map[string]string{"oldPassword": "OldPassw0rd", "newPassword": "password"}, "newPassword"},
		{"same as old", map[string]string{"oldPassword": "OldPassw0rd", "newPassword": "OldPassw0rd"}, "newPassword"},
		{"missing old", map[string]string{"newPassword": "NewPassw0rd"}, "oldPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.authenticated()

			rec := s.do(withAccessCookie(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", env.Code)
			assert.Contains(t, env.Errors, tt.field)
			s.sessions.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChangePassword_MalformedJSON(t *testing.T) {
	s := newTestServer(t)
	s.authenticated()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(withAccessCookie(req))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Code)
}
