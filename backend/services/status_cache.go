package services

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
)

const defaultCacheSize = 512

// cachedStatus pairs a rendered status payload with the change-version
// it was built from. A stale version means the entry is dead weight.
type cachedStatus struct {
	version int64
	payload any
}

// StatusCache keeps rendered status payloads per khatma so polling
// clients don't rebuild the whole board on every request. Entries are
// validated against the current change-version instead of a TTL: a
// mutation bumps the version, which silently invalidates the entry.
type StatusCache struct {
	cache *lru.Cache
}

func NewStatusCache() *StatusCache {
	c, err := lru.New(defaultCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(err)
	}
	return &StatusCache{cache: c}
}

// Get returns the cached payload for the khatma if it was built from
// the given version.
func (s *StatusCache) Get(khatmaID string, version int64) (any, bool) {
	v, ok := s.cache.Get(khatmaID)
	if !ok {
		return nil, false
	}
	entry := v.(cachedStatus)
	if entry.version != version {
		slog.Debug("Status cache stale",
			slog.String("type", "http"),
			slog.String("khatma_id", khatmaID),
			slog.Int64("cached", entry.version),
			slog.Int64("current", version))
		return nil, false
	}
	return entry.payload, true
}

// Put stores a freshly built payload under the version it reflects.
func (s *StatusCache) Put(khatmaID string, version int64, payload any) {
	s.cache.Add(khatmaID, cachedStatus{version: version, payload: payload})
}

// Invalidate drops the entry outright, for deletes where the version
// row is gone too.
func (s *StatusCache) Invalidate(khatmaID string) {
	s.cache.Remove(khatmaID)
}
