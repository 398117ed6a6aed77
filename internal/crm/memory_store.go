package crm

import (
	"context"
	"sync"
	"time"
)

// MemoryStore holds contacts in-process. Used in tests and when no database
// is configured.
type MemoryStore struct {
	mu       sync.Mutex
	contacts map[string]*Contact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: make(map[string]*Contact)}
}

func (s *MemoryStore) Sync(_ context.Context, req SyncRequest) (Contact, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return Contact{}, ErrEmailRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[email]
	if !ok {
		c = &Contact{Email: email, Counters: make(map[string]int64)}
		s.contacts[email] = c
	}
	apply(c, req, time.Now())

	out := *c
	out.Counters = make(map[string]int64, len(c.Counters))
	for k, v := range c.Counters {
		out.Counters[k] = v
	}
	out.Notes = append([]Note(nil), c.Notes...)
	return out, nil
}
