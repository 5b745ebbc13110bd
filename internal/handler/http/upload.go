package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	apperrors "github.com/Upendra-HQ/professional-backend-code/pkg/errors"
)

const (
	// maxUploadBytes covers an avatar, a cover image and the text fields.
	maxUploadBytes = 2*media.MaxFileSize + 1<<20
	// maxUploadMemory is kept in memory; larger parts spill to temp files.
	maxUploadMemory = 8 << 20
)

var errNotMultipart = apperrors.InvalidInput("request must be multipart/form-data")

func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.InvalidInput("request body too large")
		case errors.Is(err, http.ErrNotMultipart):
			return errNotMultipart
		default:
			return apperrors.InvalidInput("malformed multipart form")
		}
	}
	return nil
}

func cleanupUpload(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// formFile returns the named part as a media.File, or nil when the part is
// absent. The content type is sniffed from the bytes rather than taken from
// the client.
func formFile(r *http.Request, field string) (*media.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.InvalidInput("could not read " + field + " file")
	}
	defer file.Close()

	// One byte over the limit is enough for media.Validate to reject it.
	data, err := io.ReadAll(io.LimitReader(file, media.MaxFileSize+1))
	if err != nil {
		return nil, apperrors.InvalidInput("could not read " + field + " file")
	}

	return &media.File{
		Name:        header.Filename,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}
