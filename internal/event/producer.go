// Package event publishes account lifecycle events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	pkgkafka "github.com/Upendra-HQ/professional-backend-code/pkg/kafka"
	"github.com/Upendra-HQ/professional-backend-code/pkg/logger"
)

// Topics for user events.
var (
	TopicUserRegistered      = pkgkafka.Topic("user", "registered")
	TopicUserUpdated         = pkgkafka.Topic("user", "updated")
	TopicUserPasswordChanged = pkgkafka.Topic("user", "password_changed")
	TopicUserLoggedOut       = pkgkafka.Topic("user", "logged_out")
)

// Source identifies this service in every envelope.
const Source = "channelhub"

// UserRegisteredData is the payload of user.registered.
type UserRegisteredData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// UserUpdatedData is the payload of user.updated. Fields lists what changed.
type UserUpdatedData struct {
	UserID string   `json:"user_id"`
	Fields []string `json:"fields"`
}

// UserIDData is the payload of events that only name the user.
type UserIDData struct {
	UserID string `json:"user_id"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes user events.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer wraps a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, UserRegisteredData{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Fullname: u.Fullname,
	})
}

func (p *Producer) PublishUserUpdated(ctx context.Context, userID string, fields []string) error {
	return p.publish(ctx, TopicUserUpdated, userID, UserUpdatedData{UserID: userID, Fields: fields})
}

func (p *Producer) PublishPasswordChanged(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, UserIDData{UserID: userID})
}

func (p *Producer) PublishLoggedOut(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedOut, userID, UserIDData{UserID: userID})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, userID, Source, data)
	if err != nil {
		return err
	}
	event.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}
