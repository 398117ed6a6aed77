// Package share persists conversations behind durable share links.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"atelier/internal/artifact"
	"atelier/internal/oracle"
)

var (
	ErrNotFound = errors.New("share: not found")
	ErrExpired  = errors.New("share: link expired")
)

// Share is one stored conversation snapshot.
type Share struct {
	ID        string        `json:"shareId"`
	Title     string        `json:"title"`
	History   []oracle.Turn `json:"conversationHistory"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Store keeps shares in an expiring in-process cache backed by the artifact
// store, so links survive restarts. Reads check the expiry stamp; an expired
// durable copy yields ErrExpired rather than the stale content.
type Store struct {
	cache   *lru.LRU[string, Share]
	durable artifact.Store
	ttl     time.Duration
	baseURL string
}

func NewStore(durable artifact.Store, ttl time.Duration, maxHeld int, baseURL string) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if maxHeld <= 0 {
		maxHeld = 1024
	}
	return &Store{
		cache:   lru.NewLRU[string, Share](maxHeld, nil, ttl),
		durable: durable,
		ttl:     ttl,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// Create stores the conversation and returns the share with its public URL.
func (s *Store) Create(ctx context.Context, history []oracle.Turn, title string) (Share, string, error) {
	if len(history) == 0 {
		return Share{}, "", fmt.Errorf("share: conversation history is empty")
	}
	now := time.Now()
	sh := Share{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		History:   history,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	raw, err := json.Marshal(sh)
	if err != nil {
		return Share{}, "", err
	}
	if _, err := s.durable.Put(ctx, shareKey(sh.ID), raw, "application/json"); err != nil {
		return Share{}, "", fmt.Errorf("share: persist: %w", err)
	}
	s.cache.Add(sh.ID, sh)
	return sh, s.baseURL + "/api/share?shareId=" + sh.ID, nil
}

// Get returns the stored share, ErrNotFound when it never existed, or
// ErrExpired when its TTL has lapsed.
func (s *Store) Get(ctx context.Context, id string) (Share, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Share{}, ErrNotFound
	}
	if sh, ok := s.cache.Get(id); ok {
		if time.Now().After(sh.ExpiresAt) {
			return Share{}, ErrExpired
		}
		return sh, nil
	}

	raw, _, err := s.durable.Get(ctx, shareKey(id))
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return Share{}, ErrNotFound
		}
		return Share{}, err
	}
	var sh Share
	if err := json.Unmarshal(raw, &sh); err != nil {
		return Share{}, fmt.Errorf("share: corrupt record: %w", err)
	}
	if time.Now().After(sh.ExpiresAt) {
		return Share{}, ErrExpired
	}
	s.cache.Add(id, sh)
	return sh, nil
}

func shareKey(id string) string { return "shares/" + id + ".json" }
