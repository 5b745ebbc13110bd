package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

// maxErrorBody caps how much of an error reply is read.
const maxErrorBody = 64 << 10

// RemoteError is the error body shape shared by the media hosts this client
// talks to: {"error": {"message": "..."}}. Code is optional.
type RemoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx reply and converts it to an AppError
// carrying the upstream message. The body is consumed and closed.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", upstream, resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(body))
	var remote RemoteError
	if json.Unmarshal(body, &remote) == nil && remote.Error != nil && remote.Error.Message != "" {
		message = remote.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, upstream, message)
}

func mapStatus(status int, upstream, message string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusNotFound:
		return apperrors.NotFoundMessage(qualified)
	case status == http.StatusTooManyRequests:
		return apperrors.TooManyRequests(qualified)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(fmt.Errorf("%s", qualified))
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", upstream, status, message)
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualified,
			Status:  status,
		}
	}
}

// IsClientError reports whether status is 4xx. A client error from an
// upstream means the request itself was wrong and retrying will not help.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
