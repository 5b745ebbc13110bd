// Package memory is a media.Host that keeps files in process. It backs
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Upendra-HQ/professional-backend-code/internal/media"
)

// Object is a stored file.
type Object struct {
	ContentType string
	Data        []byte
}

// Store implements media.Host.
type Store struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
	failErr error
}

// New returns an empty Store whose URLs start with baseURL.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// FailWith makes every later Store call fail with err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Store) Store(ctx context.Context, f *media.File) (*media.Stored, error) {
	if err := media.Validate(f); err != nil {
		return nil, media.Failed("memory", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, media.Failed("memory", err)
	}

	data, err := io.ReadAll(io.LimitReader(f.Body, media.MaxFileSize+1))
	if err != nil {
		return nil, media.Failed("memory", fmt.Errorf("read upload: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, media.Failed("memory", s.failErr)
	}

	key := media.ObjectKey(f)
	s.objects[key] = Object{ContentType: f.ContentType, Data: data}
	return &media.Stored{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

// Get returns the object stored under key.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ media.Host = (*Store)(nil)
