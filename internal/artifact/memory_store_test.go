package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore("http://localhost:8080")
	ctx := context.Background()

	url, err := s.Put(ctx, "generated/ring.png", []byte{0x89, 0x50, 0x4e, 0x47}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/artifacts/generated/ring.png", url)

	data, contentType, err := s.Get(ctx, "generated/ring.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, data)
	assert.Equal(t, "image/png", contentType)
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore("")
	_, _, err := s.Get(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_KeyValidation(t *testing.T) {
	s := NewMemoryStore("")
	_, err := s.Put(context.Background(), "  ", nil, "")
	assert.Error(t, err)
}
