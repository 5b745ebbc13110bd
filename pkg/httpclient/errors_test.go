package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func remoteError(message string) string {
	return `{"error":{"message":"` + message + `"}}`
}

func TestParseResponseError_MapsStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, apperrors.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, apperrors.ErrForbidden},
		{"not found", http.StatusNotFound, apperrors.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrTooManyRequests},
		{"unavailable", http.StatusServiceUnavailable, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, remoteError("nope")), "cloudinary")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(err))
		})
	}
}

func TestParseResponseError_KeepsUpstreamMessage(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, remoteError("Invalid image file")), "cloudinary")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "cloudinary: Invalid image file", appErr.Message)
}

func TestParseResponseError_ServerErrorIsPlain(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadGateway, remoteError("upstream down")), "cloudinary")
	require.Error(t, err)

	var appErr *apperrors.AppError
	assert.False(t, errors.As(err, &appErr))
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, "plain text failure"), "s3")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "s3: plain text failure", appErr.Message)
}

func TestParseResponseError_EmptyBodyUsesStatusText(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusNotFound, ""), "cloudinary")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "cloudinary: Not Found", appErr.Message)
}

func TestParseResponseError_NullErrorObject(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, `{"error":null}`), "cloudinary")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, `cloudinary: {"error":null}`, appErr.Message)
}

func TestParseResponseError_OtherClientStatus(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusRequestEntityTooLarge, remoteError("File size too large")), "cloudinary")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.Status)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(399))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(200))
}
