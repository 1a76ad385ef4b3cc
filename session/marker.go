// Package session provides per-browser-session state for the filter
// pipeline: one-shot "applied" markers keyed by filter name, plus the
// signed cookie that identifies a browser session.
//
// A marker grants exactly one bypass. Set is performed by the warning-page
// controller after the user acknowledges the interstitial; Consume is
// performed by the dedup decorator and clears the marker atomically.
package session

import (
	"context"
	"sync"
	"time"
)

// MarkerStore is the capability interface filters use for dedup markers.
// Filters never touch ambient session state directly.
type MarkerStore interface {
	// Set records that the named filter has been acknowledged for the
	// given session.
	Set(ctx context.Context, sid, filter string) error

	// Consume reports whether a marker was present and clears it in the
	// same operation.
	Consume(ctx context.Context, sid, filter string) (bool, error)
}

// MemoryMarkerStore keeps markers in process memory. Suitable for
// single-instance deployments and tests.
type MemoryMarkerStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	markers map[markerKey]time.Time
}

type markerKey struct {
	sid    string
	filter string
}

func NewMemoryMarkerStore(ttl time.Duration) *MemoryMarkerStore {
	return &MemoryMarkerStore{
		ttl:     ttl,
		markers: make(map[markerKey]time.Time),
	}
}

func (s *MemoryMarkerStore) Set(ctx context.Context, sid, filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[markerKey{sid, filter}] = time.Now().Add(s.ttl)
	return nil
}

func (s *MemoryMarkerStore) Consume(ctx context.Context, sid, filter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := markerKey{sid, filter}
	expiry, ok := s.markers[key]
	if !ok {
		return false, nil
	}
	delete(s.markers, key)
	return time.Now().Before(expiry), nil
}
