// Package media stores user-supplied images on an external host and hands
// back the public URL that ends up on the user record.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the largest image accepted for upload.
const MaxFileSize = 10 << 20

// ErrUploadFailed is wrapped by every Host failure.
var ErrUploadFailed = errors.New("media upload failed")

// ErrUnsupportedType is returned by Validate for non-image content.
var ErrUnsupportedType = errors.New("unsupported media type")

// ErrTooLarge is returned by Validate for files over MaxFileSize.
var ErrTooLarge = errors.New("file too large")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// File is an upload in flight. Body is read once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	// Folder groups uploads on the host, e.g. "avatars".
	Folder string
}

// Stored describes a file accepted by a Host.
type Stored struct {
	URL      string
	PublicID string
}

// Host stores files and returns where they can be fetched from.
type Host interface {
	Store(ctx context.Context, f *File) (*Stored, error)
}

// Validate checks the declared type and size of f.
func Validate(f *File) error {
	if f == nil || f.Body == nil {
		return fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if _, ok := allowedTypes[ct]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, f.ContentType)
	}
	if f.Size <= 0 {
		return fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	if f.Size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, f.Size, MaxFileSize)
	}
	return nil
}

// ObjectKey returns a collision-free key for f under its folder. The
// extension follows the content type, never the client-supplied name.
func ObjectKey(f *File) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	return path.Join(strings.Trim(f.Folder, "/"), uuid.NewString()+allowedTypes[ct])
}

// Failed wraps cause as an upload failure.
func Failed(provider string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrUploadFailed, provider, cause)
}
