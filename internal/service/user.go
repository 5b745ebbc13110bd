package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Upendra-HQ/professional-backend-code/internal/auth"
	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	"github.com/Upendra-HQ/professional-backend-code/internal/repository"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/pagination"
)

// Upload folders on the media host.
const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

// UserService implements account and channel operations.
type UserService struct {
	users   repository.UserRepository
	subs    repository.SubscriptionRepository
	history repository.HistoryRepository
	hasher  *auth.PasswordHasher
	media   media.Host
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewUserService creates a new user service. A nil publisher disables events.
func NewUserService(
	users repository.UserRepository,
	subs repository.SubscriptionRepository,
	history repository.HistoryRepository,
	hasher *auth.PasswordHasher,
	host media.Host,
	events EventPublisher,
	logger *slog.Logger,
) *UserService {
	if events == nil {
		events = noopPublisher{}
	}
	return &UserService{
		users:   users,
		subs:    subs,
		history: history,
		hasher:  hasher,
		media:   host,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Fullname   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

// UpdateAccountInput holds the editable profile fields. Both are required.
type UpdateAccountInput struct {
	Fullname string
	Email    string
}

// Register creates a user with an uploaded avatar and optional cover image.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	fullname := strings.TrimSpace(input.Fullname)
	email := domain.NormalizeEmail(input.Email)
	username := domain.NormalizeUsername(input.Username)
	if fullname == "" || email == "" || username == "" || strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.InvalidInput("all fields are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if input.Avatar == nil {
		return nil, apperrors.InvalidInput("avatar file is required")
	}
	if err := checkFile(input.Avatar, "avatar"); err != nil {
		return nil, err
	}
	if input.CoverImage != nil {
		if err := checkFile(input.CoverImage, "cover image"); err != nil {
			return nil, err
		}
	}

	existing, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		if existing.Username == username {
			return nil, apperrors.AlreadyExists("user", "username", username)
		}
		return nil, apperrors.AlreadyExists("user", "email", email)
	case !isNotFound(err):
		return nil, storeError(err)
	}

	input.Avatar.Folder = avatarFolder
	avatar, err := s.media.Store(ctx, input.Avatar)
	if err != nil {
		return nil, apperrors.UploadFailed("failed to upload avatar", err)
	}

	var cover string
	if input.CoverImage != nil {
		input.CoverImage.Folder = coverFolder
		stored, err := s.media.Store(ctx, input.CoverImage)
		if err != nil {
			s.logger.WarnContext(ctx, "cover image upload failed, registering without it",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		} else {
			cover = stored.URL
		}
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		Avatar:       avatar.URL,
		CoverImage:   cover,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user.Public(), nil
}

// GetCurrentUser returns the user with credentials stripped.
func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, storeError(err)
	}
	return user.Public(), nil
}

// UpdateAccount replaces the full name and email.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, input UpdateAccountInput) (*domain.User, error) {
	fullname := strings.TrimSpace(input.Fullname)
	email := domain.NormalizeEmail(input.Email)
	if fullname == "" || email == "" {
		return nil, apperrors.InvalidInput("fullname and email are required")
	}

	return s.update(ctx, userID, domain.UserFields{Fullname: &fullname, Email: &email}, "fullname", "email")
}

// UpdateAvatar uploads a new avatar and points the user at it.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*domain.User, error) {
	url, err := s.upload(ctx, f, avatarFolder, "avatar")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, domain.UserFields{Avatar: &url}, "avatar")
}

// UpdateCoverImage uploads a new cover image and points the user at it.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*domain.User, error) {
	url, err := s.upload(ctx, f, coverFolder, "cover image")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, domain.UserFields{CoverImage: &url}, "coverImage")
}

// GetChannelProfile returns the channel of username as seen by viewerID.
func (s *UserService) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.InvalidInput("username is missing")
	}

	profile, err := s.subs.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFoundMessage("channel does not exist")
		}
		return nil, storeError(err)
	}
	return profile, nil
}

// ToggleSubscription subscribes subscriberID to the channel, or undoes an
// existing subscription.
func (s *UserService) ToggleSubscription(ctx context.Context, subscriberID, channelUsername string) (*domain.SubscriptionState, error) {
	channelUsername = domain.NormalizeUsername(channelUsername)
	if channelUsername == "" {
		return nil, apperrors.InvalidInput("username is missing")
	}

	channel, err := s.users.GetByUsername(ctx, channelUsername)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFoundMessage("channel does not exist")
		}
		return nil, storeError(err)
	}
	if channel.ID == subscriberID {
		return nil, apperrors.InvalidInput("cannot subscribe to your own channel")
	}

	subscribed, err := s.subs.Toggle(ctx, subscriberID, channel.ID)
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.InfoContext(ctx, "subscription toggled",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channel.ID),
		slog.Bool("subscribed", subscribed),
	)
	return &domain.SubscriptionState{ChannelID: channel.ID, Subscribed: subscribed}, nil
}

// GetWatchHistory returns one page of the user's watch history, most
// recent first.
func (s *UserService) GetWatchHistory(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.WatchedVideo], error) {
	videos, total, err := s.history.ListWatchHistory(ctx, userID, params.PerPage, params.Offset)
	if err != nil {
		return nil, storeError(err)
	}
	result := pagination.NewResult(videos, total, params)
	return &result, nil
}

func (s *UserService) upload(ctx context.Context, f *media.File, folder, label string) (string, error) {
	if f == nil {
		return "", apperrors.InvalidInput(label + " file is required")
	}
	if err := checkFile(f, label); err != nil {
		return "", err
	}
	f.Folder = folder
	stored, err := s.media.Store(ctx, f)
	if err != nil {
		return "", apperrors.UploadFailed("failed to upload "+label, err)
	}
	return stored.URL, nil
}

func (s *UserService) update(ctx context.Context, userID string, fields domain.UserFields, changed ...string) (*domain.User, error) {
	user, err := s.users.UpdateFields(ctx, userID, fields)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, storeError(err)
	}

	if err := s.events.PublishUserUpdated(ctx, userID, changed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user updated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return user.Public(), nil
}

// checkFile rejects files the media host would refuse before any upload
// is attempted.
func checkFile(f *media.File, label string) error {
	err := media.Validate(f)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, media.ErrTooLarge):
		return apperrors.InvalidInput(fmt.Sprintf("%s must be at most %d MiB", label, media.MaxFileSize>>20))
	default:
		return apperrors.InvalidInput(label + " must be a JPEG, PNG, WebP or GIF image")
	}
}
