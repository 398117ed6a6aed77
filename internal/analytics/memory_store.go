package analytics

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryStore struct {
	mu     sync.Mutex
	global map[string]int64
	daily  map[string]map[string]int64
	brands map[string]map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		global: make(map[string]int64),
		daily:  make(map[string]map[string]int64),
		brands: make(map[string]map[string]int64),
	}
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	event := strings.TrimSpace(ev.Type)
	if event == "" {
		return ErrEventRequired
	}
	day := dayKey(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.global[event]++
	if s.daily[day] == nil {
		s.daily[day] = make(map[string]int64)
	}
	s.daily[day][event]++
	if brand := strings.TrimSpace(ev.Brand); brand != "" {
		if s.brands[brand] == nil {
			s.brands[brand] = make(map[string]int64)
		}
		s.brands[brand][event]++
	}
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Global: make(map[string]int64, len(s.global)),
		Today:  make(map[string]int64),
		Brands: make(map[string]map[string]int64, len(s.brands)),
	}
	for k, v := range s.global {
		snap.Global[k] = v
	}
	for k, v := range s.daily[dayKey(time.Now())] {
		snap.Today[k] = v
	}
	for brand, counters := range s.brands {
		out := make(map[string]int64, len(counters))
		for k, v := range counters {
			out[k] = v
		}
		snap.Brands[brand] = out
	}
	return snap, nil
}
