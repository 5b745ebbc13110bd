package postgres

import (
	"context"
	"fmt"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/pkg/database"
)

// HistoryRepository implements repository.HistoryRepository using PostgreSQL.
type HistoryRepository struct {
	db database.DBTX
}

// NewHistoryRepository creates a new PostgreSQL-backed watch history repository.
func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListWatchHistory returns one page of the user's watched videos with their owners.
func (r *HistoryRepository) ListWatchHistory(ctx context.Context, userID string, limit, offset int) (_ []domain.WatchedVideo, _ int, err error) {
	query := `
		SELECT v.id, v.title, v.description, v.thumbnail, v.video_file, v.duration, v.views,
		       o.id, o.username, o.fullname, o.avatar,
		       h.watched_at
		FROM watch_history h
		JOIN videos v ON v.id = h.video_id
		JOIN users o ON o.id = v.owner_id
		WHERE h.user_id = $1
		ORDER BY h.watched_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListWatchHistory", query)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM watch_history WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}
	if total == 0 {
		return []domain.WatchedVideo{}, 0, nil
	}

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	videos := make([]domain.WatchedVideo, 0, limit)
	for rows.Next() {
		var v domain.WatchedVideo
		if err = rows.Scan(
			&v.ID,
			&v.Title,
			&v.Description,
			&v.Thumbnail,
			&v.VideoFile,
			&v.Duration,
			&v.Views,
			&v.Owner.ID,
			&v.Owner.Username,
			&v.Owner.Fullname,
			&v.Owner.Avatar,
			&v.WatchedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan watch history: %w", err)
		}
		videos = append(videos, v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate watch history: %w", err)
	}

	return videos, total, nil
}
