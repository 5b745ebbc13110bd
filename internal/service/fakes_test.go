package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/logger"
)

func discardLogger() *slog.Logger {
	return logger.NewWithWriter("test", "error", io.Discard)
}

// --- In-memory credential store ---

// memUserStore keeps users in a map and performs the refresh token swap
// under a mutex, which gives it the same compare-and-swap guarantee as the
// conditional UPDATE in PostgreSQL.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
	// err, when set, is returned by every call.
	err error
}

func newMemUserStore(users ...*domain.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *memUserStore) get(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memUserStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, apperrors.ErrNotFound
	}
	return s.GetByUsernameOrEmail(ctx, username, "")
}

func (s *memUserStore) UpdateFields(_ context.Context, id string, f domain.UserFields) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if f.Email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *f.Email {
				return nil, apperrors.AlreadyExists("user", "email", *f.Email)
			}
		}
		u.Email = *f.Email
	}
	if f.Fullname != nil {
		u.Fullname = *f.Fullname
	}
	if f.Avatar != nil {
		u.Avatar = *f.Avatar
	}
	if f.CoverImage != nil {
		u.CoverImage = *f.CoverImage
	}
	if f.PasswordHash != nil {
		u.PasswordHash = *f.PasswordHash
	}
	if f.ClearRefreshToken {
		u.RefreshTokenHash = ""
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *memUserStore) SetRefreshToken(_ context.Context, id, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.RefreshTokenHash = fingerprint
	return nil
}

func (s *memUserStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.RefreshTokenHash = ""
	return nil
}

func (s *memUserStore) RotateRefreshToken(_ context.Context, id, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	u, ok := s.users[id]
	if !ok || u.RefreshTokenHash == "" || u.RefreshTokenHash != expected {
		return false, nil
	}
	u.RefreshTokenHash = next
	return true, nil
}

// --- Mock Subscription Repository ---

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	args := m.Called(ctx, username, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelProfile), args.Error(1)
}

func (m *mockSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Bool(0), args.Error(1)
}

// --- Mock History Repository ---

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) ListWatchHistory(ctx context.Context, userID string, limit, offset int) ([]domain.WatchedVideo, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.WatchedVideo), args.Int(1), args.Error(2)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockPublisher) PublishUserUpdated(ctx context.Context, userID string, fields []string) error {
	return m.Called(ctx, userID, fields).Error(0)
}

func (m *mockPublisher) PublishPasswordChanged(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPublisher) PublishLoggedOut(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- Mock Login Throttle ---

type mockThrottle struct {
	mock.Mock
}

func (m *mockThrottle) Check(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

func (m *mockThrottle) RecordFailure(ctx context.Context, identifier string) {
	m.Called(ctx, identifier)
}

func (m *mockThrottle) Reset(ctx context.Context, identifier string) {
	m.Called(ctx, identifier)
}

// --- Mock Media Host ---

type mockHost struct {
	mock.Mock
}

func (m *mockHost) Store(ctx context.Context, f *media.File) (*media.Stored, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Stored), args.Error(1)
}

// testClock is a settable clock shared by the token manager under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
