package artifact

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type memObject struct {
	content     []byte
	contentType string
}

// MemoryStore keeps artifacts in a process-local map. Used in tests and when
// no object storage is configured; URLs point back at the API's own
// artifact-serving route.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]memObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]memObject),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, content []byte, contentType string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	key = normalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = memObject{
		content:     append([]byte(nil), content...),
		contentType: contentType,
	}
	return s.baseURL + "/api/artifacts/" + key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	if s == nil {
		return nil, "", fmt.Errorf("store is nil")
	}
	key = normalizeKey(key)
	if key == "" {
		return nil, "", fmt.Errorf("key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.data[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), obj.content...), obj.contentType, nil
}
