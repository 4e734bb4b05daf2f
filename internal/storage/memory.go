package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process memory. It pairs with the in-memory
// database fallback and is lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Upload(ctx context.Context, folder, ext, contentType string, data io.Reader) (string, int64, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read upload: %w", err)
	}

	storagePath := objectPath(folder, ext)

	s.mu.Lock()
	s.objects[storagePath] = buf
	s.mu.Unlock()

	return storagePath, int64(len(buf)), nil
}

func (s *MemoryStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	s.mu.RLock()
	buf, ok := s.objects[storagePath]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, storagePath string) error {
	s.mu.Lock()
	delete(s.objects, storagePath)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
