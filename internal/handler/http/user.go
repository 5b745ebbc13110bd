package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Upendra-HQ/professional-backend-code/internal/domain"
	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	"github.com/Upendra-HQ/professional-backend-code/internal/service"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httputil"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
	"github.com/Upendra-HQ/professional-backend-code/pkg/pagination"
	"github.com/Upendra-HQ/professional-backend-code/pkg/validator"
)

// AccountService is the account surface the handlers depend on.
// *service.UserService implements it.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.User, error)
	GetCurrentUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateAccount(ctx context.Context, userID string, input service.UpdateAccountInput) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, f *media.File) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*domain.User, error)
	GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelUsername string) (*domain.SubscriptionState, error)
	GetWatchHistory(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.WatchedVideo], error)
}

// UserHandler handles HTTP requests for account and channel endpoints.
type UserHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(accounts AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// --- Request DTOs ---

// RegisterForm holds the text fields of the multipart registration form.
type RegisterForm struct {
	Fullname string `json:"fullname" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

// UpdateAccountRequest is the JSON request body for an account update.
type UpdateAccountRequest struct {
	Fullname string `json:"fullname" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanupUpload(r)

	form := RegisterForm{
		Fullname: r.FormValue("fullname"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	avatar, err := formFile(r, "avatar")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	cover, err := formFile(r, "coverImage")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Fullname:   form.Fullname,
		Email:      form.Email,
		Username:   form.Username,
		Password:   form.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, user, "user registered successfully")
}

// CurrentUser handles GET /api/v1/users/current-user
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetCurrentUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.accounts.UpdateAccount(r.Context(), middleware.UserIDFromContext(r.Context()), service.UpdateAccountInput{
		Fullname: req.Fullname,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.accounts.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.accounts.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(context.Context, string, *media.File) (*domain.User, error),
	message string,
) {
	if err := parseUpload(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanupUpload(r)

	f, err := formFile(r, field)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := update(r.Context(), middleware.UserIDFromContext(r.Context()), f)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user, message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}
func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.GetChannelProfile(r.Context(), chi.URLParam(r, "username"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, profile, "user channel fetched successfully")
}

// ToggleSubscription handles POST /api/v1/users/c/{username}/subscription
func (h *UserHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	state, err := h.accounts.ToggleSubscription(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	message := "unsubscribed successfully"
	if state.Subscribed {
		message = "subscribed successfully"
	}
	httputil.WriteSuccess(w, http.StatusOK, state, message)
}

// WatchHistory handles GET /api/v1/users/history
func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	result, err := h.accounts.GetWatchHistory(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, result, "watch history fetched successfully")
}
