// Package limiter throttles repeated failed logins for the same identifier
// with a Redis fixed-window counter.
package limiter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited is returned when the identifier has used up its attempts.
var ErrLimited = errors.New("too many failed login attempts")

const keyPrefix = "channelhub:login:fail:"

// Config tunes the window.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter counts failed logins per identifier. Redis errors are logged
// and treated as "allowed" so a cache outage never blocks sign-in.
type LoginLimiter struct {
	redis  redis.UniversalClient
	cfg    Config
	logger *slog.Logger
}

// New returns a LoginLimiter. A non-positive MaxAttempts disables it.
func New(client redis.UniversalClient, cfg Config, logger *slog.Logger) *LoginLimiter {
	return &LoginLimiter{redis: client, cfg: cfg, logger: logger}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.redis != nil && l.cfg.MaxAttempts > 0
}

// Check returns ErrLimited when identifier is over budget in the current window.
func (l *LoginLimiter) Check(ctx context.Context, identifier string) error {
	if !l.enabled() || identifier == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, key(identifier)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.WarnContext(ctx, "login limiter unavailable, allowing attempt", slog.String("error", err.Error()))
		}
		return nil
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

// RecordFailure counts one failed attempt. The window starts at the first
// failure and is not extended by later ones.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) {
	if !l.enabled() || identifier == "" {
		return
	}

	k := key(identifier)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		l.logger.WarnContext(ctx, "login limiter increment failed", slog.String("error", err.Error()))
		return
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			l.logger.WarnContext(ctx, "login limiter expire failed", slog.String("error", err.Error()))
		}
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) {
	if !l.enabled() || identifier == "" {
		return
	}
	if err := l.redis.Del(ctx, key(identifier)).Err(); err != nil {
		l.logger.WarnContext(ctx, "login limiter reset failed", slog.String("error", err.Error()))
	}
}

// key folds case so "Alice" and "alice" share one budget.
func key(identifier string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identifier))
}
