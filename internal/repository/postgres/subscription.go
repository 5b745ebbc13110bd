package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/pkg/database"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

// SubscriptionRepository implements repository.SubscriptionRepository using PostgreSQL.
type SubscriptionRepository struct {
	db database.DBTX
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ChannelProfile loads a channel and its subscription counts.
func (r *SubscriptionRepository) ChannelProfile(ctx context.Context, username, viewerID string) (_ *domain.ChannelProfile, err error) {
	query := `
		SELECT u.id, u.username, u.fullname, u.email, u.avatar, u.cover_image,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
		       EXISTS (SELECT 1 FROM subscriptions s
		               WHERE s.channel_id = u.id AND s.subscriber_id::text = $2)
		FROM users u
		WHERE u.username = $1`

	ctx, end := database.TraceQuery(ctx, "GetChannelProfile", query)
	defer func() { end(err) }()

	var p domain.ChannelProfile
	err = r.db.QueryRow(ctx, query, username, viewerID).Scan(
		&p.ID,
		&p.Username,
		&p.Fullname,
		&p.Email,
		&p.Avatar,
		&p.CoverImage,
		&p.SubscribersCount,
		&p.ChannelsSubscribedToCount,
		&p.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get channel profile: %w", err)
	}

	return &p, nil
}

// Toggle flips the subscription of subscriberID to channelID. Each outcome
// is decided by a single statement: the INSERT wins when no row exists,
// otherwise the DELETE removes it.
func (r *SubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (_ bool, err error) {
	insertQuery := `
		INSERT INTO subscriptions (subscriber_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING
		RETURNING true`

	ctx, end := database.TraceQuery(ctx, "ToggleSubscription", insertQuery)
	defer func() { end(err) }()

	var inserted bool
	err = r.db.QueryRow(ctx, insertQuery, subscriberID, channelID).Scan(&inserted)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	if _, err = r.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		subscriberID, channelID); err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return false, nil
}
