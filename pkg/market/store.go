package market

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSnapshot indicates that no poll cycle has succeeded yet.
var ErrNoSnapshot = errors.New("market: no snapshot captured yet")

// Store holds the latest snapshot. It has exactly one writer (the poller)
// and arbitrarily many readers; the slot is swapped wholesale under the lock
// so readers always see either the prior or the new snapshot, never a mix.
//
// The store never expires or clears its contents: serving stale data beats
// serving nothing, and freshness policy belongs to callers.
type Store struct {
	mu        sync.RWMutex
	snapshot  *Snapshot
	writtenAt time.Time
	nowFn     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nowFn: time.Now}
}

// Write replaces the stored snapshot. Nil snapshots are ignored so a buggy
// caller cannot regress the store to empty.
func (s *Store) Write(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.writtenAt = s.nowFn()
}

// Read returns the current snapshot and its age, or ErrNoSnapshot when the
// store has never been written.
func (s *Store) Read() (*Snapshot, time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, 0, ErrNoSnapshot
	}
	return s.snapshot, s.nowFn().Sub(s.writtenAt), nil
}

// Latest returns the current snapshot or nil when empty. Convenience for
// callers that only need presence, not age.
func (s *Store) Latest() *Snapshot {
	snapshot, _, err := s.Read()
	if err != nil {
		return nil
	}
	return snapshot
}
