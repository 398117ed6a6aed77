package share

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/artifact"
	"atelier/internal/oracle"
)

func history() []oracle.Turn {
	return []oracle.Turn{
		{Role: "user", Content: "I want a ring"},
		{Role: "assistant", Content: "What metal do you prefer?"},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore(artifact.NewMemoryStore(""), time.Hour, 16, "http://localhost:8080")
	ctx := context.Background()

	sh, url, err := s.Create(ctx, history(), "My ring design")
	require.NoError(t, err)
	assert.NotEmpty(t, sh.ID)
	assert.Contains(t, url, "shareId="+sh.ID)
	assert.True(t, sh.ExpiresAt.After(time.Now()))

	got, err := s.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, "My ring design", got.Title)
	assert.Len(t, got.History, 2)
}

func TestStore_GetSurvivesCacheLoss(t *testing.T) {
	durable := artifact.NewMemoryStore("")
	s := NewStore(durable, time.Hour, 16, "")
	ctx := context.Background()

	sh, _, err := s.Create(ctx, history(), "t")
	require.NoError(t, err)

	// A fresh store over the same durable backend simulates a restart.
	restarted := NewStore(durable, time.Hour, 16, "")
	got, err := restarted.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, sh.ID, got.ID)
}

func TestStore_Missing(t *testing.T) {
	s := NewStore(artifact.NewMemoryStore(""), time.Hour, 16, "")
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Expired(t *testing.T) {
	s := NewStore(artifact.NewMemoryStore(""), 10*time.Millisecond, 16, "")
	ctx := context.Background()

	sh, _, err := s.Create(ctx, history(), "t")
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)
	_, err = s.Get(ctx, sh.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStore_EmptyHistoryRejected(t *testing.T) {
	s := NewStore(artifact.NewMemoryStore(""), time.Hour, 16, "")
	_, _, err := s.Create(context.Background(), nil, "t")
	assert.Error(t, err)
}
