package repository

import (
	"context"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
)

// UserRepository is the credential store. Lookups that find nothing return
// an error matching apperrors.ErrNotFound.
type UserRepository interface {
	// Create inserts a new user. A duplicate username or email yields an
	// ALREADY_EXISTS AppError.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsernameOrEmail matches either column. Empty arguments never match.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)

	// GetByUsername retrieves a user by their (lower-case) username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateFields applies the non-nil fields and returns the stored result.
	UpdateFields(ctx context.Context, id string, fields domain.UserFields) (*domain.User, error)

	// SetRefreshToken records the fingerprint of the only redeemable
	// refresh token, replacing any previous one.
	SetRefreshToken(ctx context.Context, id, fingerprint string) error

	// ClearRefreshToken revokes the outstanding session. Clearing an
	// already-empty session succeeds.
	ClearRefreshToken(ctx context.Context, id string) error

	// RotateRefreshToken replaces expected with next only if expected is
	// still the recorded fingerprint. It reports whether the swap happened.
	// Concurrent callers presenting the same expected value see exactly one
	// true.
	RotateRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}

// SubscriptionRepository manages channel subscriptions.
type SubscriptionRepository interface {
	// ChannelProfile loads the channel owned by username together with its
	// subscription counts, from the point of view of viewerID.
	ChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)

	// Toggle subscribes subscriberID to channelID, or unsubscribes when a
	// subscription already exists. It returns the resulting state.
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// HistoryRepository reads a user's watch history.
type HistoryRepository interface {
	// ListWatchHistory returns one page of watched videos, most recent
	// first, and the total number of entries.
	ListWatchHistory(ctx context.Context, userID string, limit, offset int) ([]domain.WatchedVideo, int, error)
}
