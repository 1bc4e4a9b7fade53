/*
Package client implements the offline-first companion to the tracking API.

PURPOSE:
  Records created while offline live in a local blob cache and are pushed to
  the server by background reconcilers. The server is authoritative: after a
  successful cycle, the cache mirrors the server state.

COMPONENTS:
  cache.go:               BlobStore port and the cached record shapes
  api.go:                 Thin HTTP client for the sync endpoints
  session_reconciler.go:  Pending-only push of closed work sessions
  vacation_reconciler.go: Full-state vacation sync with deletion echo

CACHE LAYOUT:
  One JSON blob per ledger, keyed by a fixed name. Each cached record carries
  two flags mirroring the frontend cache model: Synced (the server has this
  version) and PendingSync (the record was queued for a push). A record is
  eligible for the next push when it is pending and not synced.
*/
package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tracklite/track-engine/track"
)

// Blob keys, one per cached ledger.
const (
	sessionsKey  = "work_sessions"
	vacationsKey = "vacation_days"
)

// BlobStore is the persistence port for cached ledgers. Implementations map
// a key to one JSON document; browser builds back this with localStorage,
// desktop builds with a file per key.
type BlobStore interface {
	// Get returns the blob for the key, or (nil, nil) when absent.
	Get(key string) ([]byte, error)

	// Set replaces the blob for the key.
	Set(key string, data []byte) error
}

// MemoryBlobStore is an in-memory BlobStore for tests and ephemeral runs.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[key], nil
}

func (m *MemoryBlobStore) Set(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

// CachedSession is one work session as held in the local cache.
type CachedSession struct {
	ID              string     `json:"id"`
	Date            track.Date `json:"date"`
	StartTime       time.Time  `json:"start_time"`
	StopTime        *time.Time `json:"stop_time"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	Synced          bool       `json:"is_synced"`
	PendingSync     bool       `json:"is_pending_sync"`
}

// Open reports whether the session has no stop time yet. Open sessions are
// never transmitted.
func (c CachedSession) Open() bool { return c.StopTime == nil }

// NeedsPush reports whether the record is in the pending set: queued for a
// push and not yet acknowledged by the server. A record that is neither
// (local-only, not queued) stays out of the batch.
func (c CachedSession) NeedsPush() bool { return c.PendingSync && !c.Synced }

// CachedVacationDay is one vacation day as held in the local cache.
type CachedVacationDay struct {
	ID          string     `json:"id"`
	Date        track.Date `json:"date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Synced      bool       `json:"is_synced"`
	PendingSync bool       `json:"is_pending_sync"`
}

// NeedsPush reports whether the record is in the pending set.
func (c CachedVacationDay) NeedsPush() bool { return c.PendingSync && !c.Synced }

func loadBlob[T any](store BlobStore, key string) ([]T, error) {
	data, err := store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %q: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode cache %q: %w", key, err)
	}
	return records, nil
}

func storeBlob[T any](store BlobStore, key string, records []T) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode cache %q: %w", key, err)
	}
	if err := store.Set(key, data); err != nil {
		return fmt.Errorf("failed to write cache %q: %w", key, err)
	}
	return nil
}
