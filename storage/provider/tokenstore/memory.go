// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/qolzam/telar-drive/internal/pkg/log"
)

// MemoryStore is an in-process token store. Expired entries are purged
// by a background sweep so the map cannot grow without bound.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	done    chan struct{}
	closeMu sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store sweeping expired tokens every
// sweepInterval. A non-positive interval disables the sweep.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *MemoryStore) Save(ctx context.Context, token string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = entry
	return nil
}

func (s *MemoryStore) Peek(ctx context.Context, token string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return Entry{}, false, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(s.entries, token)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return Entry{}, false, nil
	}
	delete(s.entries, token)
	if time.Now().After(entry.ExpiresAt) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *MemoryStore) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	cleaned := 0
	for token, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, token)
			cleaned++
		}
	}
	active := len(s.entries)
	s.mu.Unlock()

	if cleaned > 0 {
		log.Info("token store sweep removed %d expired token(s), %d active", cleaned, active)
	}
}
