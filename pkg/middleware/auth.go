package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httputil"
	"github.com/Upendra-HQ/professional-backend-code/pkg/logger"
)

type contextKeyType string

const (
	userIDKey    contextKeyType = "user_id"
	principalKey contextKeyType = "principal"
)

// ErrNoCredentials is passed to the error handler when the request carries
// neither the access cookie nor a bearer token.
var ErrNoCredentials = errors.New("no access token presented")

// Principal is the authenticated caller attached to the request context.
// Value holds the resolver's own representation of the caller.
type Principal struct {
	UserID   string
	Username string
	Value    any
}

// Resolver verifies a raw access token and returns the caller it belongs to.
type Resolver func(ctx context.Context, token string) (*Principal, error)

// AuthOptions configures Auth.
type AuthOptions struct {
	// CookieName is consulted before the Authorization header.
	CookieName string
	Resolve    Resolver
	// OnError renders a rejected request. Defaults to a 401 envelope.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
	Logger  *slog.Logger
}

// TokenFromRequest returns the access token carried by r. A non-empty cookie
// wins over an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Auth resolves the caller's access token and stores the Principal in the
// request context. The resolver is called once per request.
func Auth(opts AuthOptions) func(http.Handler) http.Handler {
	onError := opts.OnError
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, ErrNoCredentials) {
				err = apperrors.AuthFailure("TOKEN_MISSING", "unauthorized request", err)
			}
			httputil.WriteError(w, r, err, opts.Logger)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, opts.CookieName)
			if token == "" {
				onError(w, r, ErrNoCredentials)
				return
			}

			p, err := opts.Resolve(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			// RequestLogger ran before the caller was known.
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", p.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	ctx = context.WithValue(ctx, userIDKey, p.UserID)
	return logger.WithUserID(ctx, p.UserID)
}

// PrincipalFromContext returns the caller stored by Auth, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
