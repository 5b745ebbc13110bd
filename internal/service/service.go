package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/pkg/database"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

// minPasswordLength is the minimum password length accepted on register
// and password change.
const minPasswordLength = 8

// EventPublisher announces account changes. Publishing is best-effort:
// services log failures and carry on.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, u *domain.User) error
	PublishUserUpdated(ctx context.Context, userID string, fields []string) error
	PublishPasswordChanged(ctx context.Context, userID string) error
	PublishLoggedOut(ctx context.Context, userID string) error
}

// LoginThrottle limits repeated failed logins per identifier.
type LoginThrottle interface {
	Check(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string)
	Reset(ctx context.Context, identifier string)
}

type noopThrottle struct{}

func (noopThrottle) Check(context.Context, string) error { return nil }
func (noopThrottle) RecordFailure(context.Context, string) {}
func (noopThrottle) Reset(context.Context, string) {}

type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(context.Context, *domain.User) error { return nil }
func (noopPublisher) PublishUserUpdated(context.Context, string, []string) error { return nil }
func (noopPublisher) PublishPasswordChanged(context.Context, string) error { return nil }
func (noopPublisher) PublishLoggedOut(context.Context, string) error { return nil }

var sessionOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_operations_total",
		Help: "Session operations by outcome. Failures are labelled with their error code.",
	},
	[]string{"operation", "outcome"},
)

func observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "INTERNAL_ERROR"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			outcome = appErr.Code
		}
	}
	sessionOperations.WithLabelValues(operation, outcome).Inc()
}

// storeError turns timeouts and lost connections into a retryable 503 so
// they are never mistaken for an authentication verdict.
func storeError(err error) error {
	if database.IsUnavailable(err) {
		return apperrors.Unavailable(err)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
