package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryStore struct {
	cfg         Config
	items       map[string]memoryEntry
	mutex       sync.Mutex
	cleanupFreq time.Duration
	now         func() time.Time
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-process challenge store with a background GC loop.
// It is only suitable for a single auth instance.
func NewMemory(cfg Config) Store {
	return newMemory(cfg, time.Now)
}

func newMemory(cfg Config, now func() time.Time) *memoryStore {
	cleanup := time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		cfg:         cfg,
		items:       make(map[string]memoryEntry),
		cleanupFreq: cleanup,
		now:         now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Issue(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("challenge key required")
	}
	s.mutex.Lock()
	s.items[key] = memoryEntry{value: value, expiresAt: s.now().Add(s.cfg.ttl(ttl))}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Verify(_ context.Context, key, supplied string) error {
	const op = "challenge.verify"
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return expired(op)
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.items, key)
		return expired(op)
	}
	if !matches(entry.value, supplied) {
		if s.cfg.ConsumeOnMismatch {
			delete(s.items, key)
		}
		return mismatch(op)
	}
	delete(s.items, key)
	return nil
}

func (s *memoryStore) cleanupExpired() {
	now := s.now()
	s.mutex.Lock()
	for key, entry := range s.items {
		if !now.Before(entry.expiresAt) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) size() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.items)
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}
