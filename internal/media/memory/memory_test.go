package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upendra-HQ/professional-backend-code/internal/media"
)

func gif() *media.File {
	return &media.File{ContentType: "image/gif", Size: 3, Body: strings.NewReader("GIF"), Folder: "avatars"}
}

func TestStore_RoundTrip(t *testing.T) {
	s := New("http://media.local/")

	stored, err := s.Store(context.Background(), gif())
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/"+stored.PublicID, stored.URL)

	obj, ok := s.Get(stored.PublicID)
	require.True(t, ok)
	assert.Equal(t, "GIF", string(obj.Data))
	assert.Equal(t, "image/gif", obj.ContentType)
	assert.Equal(t, 1, s.Len())
}

func TestStore_FailWith(t *testing.T) {
	s := New("http://media.local")
	cause := errors.New("disk full")
	s.FailWith(cause)

	_, err := s.Store(context.Background(), gif())
	assert.ErrorIs(t, err, media.ErrUploadFailed)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, s.Len())

	s.FailWith(nil)
	_, err = s.Store(context.Background(), gif())
	assert.NoError(t, err)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New("http://media.local").Store(ctx, gif())
	assert.ErrorIs(t, err, media.ErrUploadFailed)
	assert.ErrorIs(t, err, context.Canceled)
}
