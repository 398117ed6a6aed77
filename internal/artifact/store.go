package artifact

import (
	"context"
	"errors"
)

// Store defines operations for persisting generated artifacts.
type Store interface {
	// Put writes content under key and returns a public URL for it.
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	// Get returns the stored bytes and content type for key.
	Get(ctx context.Context, key string) ([]byte, string, error)
}

var ErrNotFound = errors.New("artifact not found")
