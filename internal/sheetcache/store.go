// Package sheetcache implements the time-boxed read-through cache in front of
// the spreadsheet upstream. Entries carry their fetch time and freshness is
// evaluated when they are read, never in the background.
package sheetcache

import (
	"sync"
	"time"

	"github.com/bandungair/udara/internal/domain/reading"
)

// Key identifies one cached worksheet.
type Key struct {
	SpreadsheetID string
	Worksheet     string
}

func (k Key) String() string {
	return k.SpreadsheetID + "/" + k.Worksheet
}

// Entry is a cached set of rows together with the time they were fetched.
type Entry struct {
	Rows      []reading.Record
	FetchedAt time.Time
}

// Fresh reports whether the entry is still within ttl as of now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store is an in-memory entry map. Entries are never evicted on expiry;
// stale rows stay available as a fallback until overwritten or cleared.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[Key]Entry)}
}

// Get returns the entry for key, fresh or stale.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put stores rows for key with now as the fetch time.
func (s *Store) Put(key Key, rows []reading.Record, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Rows: rows, FetchedAt: now}
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]Entry)
}

// Len returns the number of cached worksheets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
