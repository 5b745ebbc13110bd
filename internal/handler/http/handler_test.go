package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	"github.com/Upendra-HQ/professional-backend-code/internal/service"
	"github.com/Upendra-HQ/professional-backend-code/pkg/health"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
	"github.com/Upendra-HQ/professional-backend-code/pkg/pagination"
)

// --- Mock Session Authority ---

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Login(ctx context.Context, input service.LoginInput) (*domain.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResult), args.Error(1)
}

func (m *mockSessions) Refresh(ctx context.Context, presented string) (*domain.SessionPair, error) {
	args := m.Called(ctx, presented)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionPair), args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockSessions) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

func (m *mockSessions) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock Account Service ---

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAccounts) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAccounts) UpdateAccount(ctx context.Context, userID string, input service.UpdateAccountInput) (*domain.User, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAccounts) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*domain.User, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAccounts) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*domain.User, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAccounts) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	args := m.Called(ctx, username, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelProfile), args.Error(1)
}

func (m *mockAccounts) ToggleSubscription(ctx context.Context, subscriberID, channelUsername string) (*domain.SubscriptionState, error) {
	args := m.Called(ctx, subscriberID, channelUsername)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionState), args.Error(1)
}

func (m *mockAccounts) GetWatchHistory(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.WatchedVideo], error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Result[domain.WatchedVideo]), args.Error(1)
}

// --- Helpers ---

const (
	validAccess  = "valid-access-token"
	validRefresh = "valid-refresh-token"
)

var alice = &domain.User{ID: "u-1", Username: "alice", Email: "alice@example.com", Fullname: "Alice"}

type testServer struct {
	handler  http.Handler
	sessions *mockSessions
	accounts *mockAccounts
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, RouterConfig{
		ServiceName:   "channelhub-test",
		CORS:          middleware.DefaultCORSConfig(),
		AuthRateLimit: middleware.RateLimitConfig{RPS: 1000, Burst: 1000},
	})
}

func newTestServerWithConfig(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sessions := new(mockSessions)
	accounts := new(mockAccounts)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testServer{
		handler:  NewRouter(ctx, sessions, accounts, health.NewHandler(), cfg, logger),
		sessions: sessions,
		accounts: accounts,
	}
}

// authenticated makes validAccess resolve to alice.
func (s *testServer) authenticated() {
	s.sessions.On("Authenticate", mock.Anything, validAccess).Return(alice, nil)
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withAccessCookie(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: validAccess})
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	Errors     map[string]string
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func mustField(t *testing.T, data json.RawMessage, name string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	v, ok := fields[name]
	require.True(t, ok, "field %q missing from %s", name, data)
	return v
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testPair() *domain.SessionPair {
	now := time.Now()
	return &domain.SessionPair{
		AccessToken:      validAccess,
		RefreshToken:     validRefresh,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
}
