package registry

import (
	"sync"

	"github.com/kbukum/eureka/logger"
)

// Store owns the current Cache. Full snapshots are built off-lock and
// installed as a single pointer swap; deltas are small in-place edits
// applied under the write lock. Readers always see either the old cache
// or the new one, never a half-replaced pair of indices.
type Store struct {
	mu       sync.RWMutex
	cache    *Cache
	filterUp bool
	log      *logger.Logger
}

// NewStore creates an empty store. When filterUp is set, only UP
// instances are indexed on full rebuilds and delta adds.
func NewStore(filterUp bool, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		cache:    NewCache(),
		filterUp: filterUp,
		log:      log.WithComponent("registry"),
	}
}

// ReplaceSnapshot rebuilds the cache from a full snapshot and installs it
// atomically, replacing both indices together.
func (s *Store) ReplaceSnapshot(apps []Application) {
	fresh := BuildCache(apps, s.filterUp)

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()

	s.log.Debug("registry cache rebuilt", map[string]interface{}{
		"apps": len(fresh.ByApp), "vips": len(fresh.ByVip),
	})
}

// ApplyDelta reconciles an incremental batch into the current cache.
func (s *Store) ApplyDelta(apps []Application) {
	s.mu.Lock()
	ApplyDelta(s.cache, apps, s.filterUp)
	s.mu.Unlock()

	s.log.Debug("registry delta applied", map[string]interface{}{
		"apps": len(apps),
	})
}

// InstancesByAppID returns the cached instances for an application name.
func (s *Store) InstancesByAppID(appID string) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.InstancesByAppID(appID)
}

// InstancesByVipAddress returns the cached instances for a VIP address.
func (s *Store) InstancesByVipAddress(vip string) []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.InstancesByVipAddress(vip)
}

// AppNames returns the names of all cached applications.
func (s *Store) AppNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.AppNames()
}
