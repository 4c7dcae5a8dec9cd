package resolver

import (
	"context"
	"sync"
)

// StaticConfig configures a Static resolver.
type StaticConfig struct {
	// Host and Port describe a single server; used when ServiceURLs is empty.
	Host string
	Port int
	// ServicePath is the registry base path appended to Host:Port.
	ServicePath string
	// Secure selects https when building a URL from Host and Port.
	Secure bool

	// ServiceURLs maps zone names to lists of full server base URLs.
	ServiceURLs map[string][]string
	// AvailabilityZones maps a region to its ordered zone list.
	AvailabilityZones map[string][]string
	// Region selects the zone list from AvailabilityZones.
	Region string

	// PreferSameZone moves the instance's own zone to the front of the ring.
	PreferSameZone bool
	// InstanceZone is the availability zone this client runs in.
	InstanceZone string
}

// Static resolves servers from an immutable ring built at construction.
// Only the rotation position changes afterwards.
type Static struct {
	mu   sync.Mutex
	ring []string
}

// NewStatic builds the ring from configuration. Zone ordering follows the
// region's zone list (or the single implicit zone); with zone affinity
// enabled, the instance's own zone is prepended instead of appended.
func NewStatic(cfg StaticConfig) (*Static, error) {
	ring, err := buildRing(cfg)
	if err != nil {
		return nil, err
	}
	return &Static{ring: ring}, nil
}

// Resolve returns the current head of the ring, rotating first when the
// caller reports a retry. Rotation is sticky across calls.
func (s *Static) Resolve(_ context.Context, retryAttempt int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ring) == 0 {
		return "", ErrNoServers
	}
	if retryAttempt > 0 && len(s.ring) > 1 {
		s.ring = append(s.ring[1:], s.ring[0])
	}
	return s.ring[0], nil
}

func buildRing(cfg StaticConfig) ([]string, error) {
	if len(cfg.ServiceURLs) == 0 {
		if cfg.Host == "" || cfg.Port <= 0 {
			return nil, ErrNoServers
		}
		return []string{baseURL(cfg.Secure, cfg.Host, cfg.Port, cfg.ServicePath)}, nil
	}

	zones := cfg.AvailabilityZones[cfg.Region]
	if len(zones) == 0 {
		zones = []string{DefaultZone}
	}

	var ring []string
	for _, zone := range zones {
		urls := cfg.ServiceURLs[zone]
		if len(urls) == 0 {
			continue
		}
		if cfg.PreferSameZone && cfg.InstanceZone == zone {
			ring = append(append([]string{}, urls...), ring...)
		} else {
			ring = append(ring, urls...)
		}
	}
	if len(ring) == 0 {
		return nil, ErrNoServers
	}
	return ring, nil
}
