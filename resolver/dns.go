package resolver

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/eureka/logger"
)

// LookupTXT resolves the TXT records for a name. The default uses the
// system resolver; tests inject their own.
type LookupTXT func(ctx context.Context, name string) ([]string, error)

// DNSConfig configures a DNS resolver.
type DNSConfig struct {
	// Host is the discovery domain; the zone list lives in the TXT record
	// at txt.{region}.{host}.
	Host string
	// Region scopes the first-level lookup.
	Region string
	// Port and ServicePath complete the base URL for each resolved host.
	Port        int
	ServicePath string
	Secure      bool

	// PreferSameZone places hosts from the instance's own zone first.
	PreferSameZone bool
	// InstanceZone is the availability zone this client runs in.
	InstanceZone string

	// RefreshInterval is the background re-resolution period. Default: 5m.
	RefreshInterval time.Duration

	// Lookup overrides the TXT lookup, primarily for tests.
	Lookup LookupTXT
}

// DNS resolves servers through two-level TXT lookups and keeps the result
// cached, refreshing it in the background independent of the request path.
type DNS struct {
	cfg    DNSConfig
	lookup LookupTXT
	log    *logger.Logger

	mu          sync.Mutex
	ring        []string
	hostSet     map[string]struct{}
	lastRefresh time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDNS validates the configuration and starts the background refresh
// loop. Callers must Close the resolver to stop it.
func NewDNS(cfg DNSConfig, log *logger.Logger) (*DNS, error) {
	if cfg.Host == "" {
		return nil, ErrMissingHost
	}
	if cfg.Region == "" {
		return nil, ErrMissingRegion
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}

	lookup := cfg.Lookup
	if lookup == nil {
		lookup = net.DefaultResolver.LookupTXT
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &DNS{
		cfg:    cfg,
		lookup: lookup,
		log:    log.WithComponent("dns-resolver"),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.refreshLoop(ctx)
	return d, nil
}

// Close stops the background refresh loop.
func (d *DNS) Close() error {
	d.cancel()
	<-d.done
	return nil
}

// Resolve returns the head of the cached server ring, rotating on retry.
// The first call triggers a synchronous resolution when nothing is cached
// yet.
func (d *DNS) Resolve(ctx context.Context, retryAttempt int) (string, error) {
	d.mu.Lock()
	empty := len(d.ring) == 0
	d.mu.Unlock()

	if empty {
		if err := d.refresh(ctx); err != nil {
			return "", err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.ring) == 0 {
		return "", ErrEmptyResolution
	}
	if retryAttempt > 0 && len(d.ring) > 1 {
		d.ring = append(d.ring[1:], d.ring[0])
	}
	return d.ring[0], nil
}

// LastRefresh reports when the server list last resolved successfully.
func (d *DNS) LastRefresh() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRefresh
}

func (d *DNS) refreshLoop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.refresh(ctx); err != nil {
				// Keep serving the previous list; a transient DNS outage
				// must not poison the cache.
				d.log.Warn("cluster refresh failed, keeping previous servers",
					logger.ErrorFields("dns_refresh", err))
			}
		}
	}
}

// refresh re-resolves the cluster and installs the new ring. When the
// resolved host set is unchanged, the existing ring (and its rotation
// position) is kept to avoid churn.
func (d *DNS) refresh(ctx context.Context) error {
	hosts, err := d.ResolveClusterHosts(ctx)
	if err != nil {
		return err
	}

	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[h] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if sameHostSet(d.hostSet, set) {
		d.lastRefresh = time.Now()
		return nil
	}

	ring := make([]string, len(hosts))
	for i, h := range hosts {
		ring[i] = baseURL(d.cfg.Secure, h, d.cfg.Port, d.cfg.ServicePath)
	}
	d.ring = ring
	d.hostSet = set
	d.lastRefresh = time.Now()

	d.log.Info("eureka cluster resolved", map[string]interface{}{
		"hosts": len(hosts),
	})
	return nil
}

// ResolveClusterHosts performs the two-level TXT resolution: the record
// at txt.{region}.{host} lists per-zone DNS names, and each zone name's
// TXT record (queried concurrently) lists that zone's server hostnames.
// Failure of any single zone lookup fails the whole resolution.
func (d *DNS) ResolveClusterHosts(ctx context.Context) ([]string, error) {
	discoveryName := fmt.Sprintf("txt.%s.%s", d.cfg.Region, d.cfg.Host)
	records, err := d.lookup(ctx, discoveryName)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", discoveryName, err)
	}

	zoneNames := splitTXTRecords(records)
	if len(zoneNames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResolution, discoveryName)
	}

	zoneHosts := make([][]string, len(zoneNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, zoneName := range zoneNames {
		i, zoneName := i, zoneName
		g.Go(func() error {
			recs, err := d.lookup(gctx, "txt."+zoneName)
			if err != nil {
				return fmt.Errorf("lookup zone %s: %w", zoneName, err)
			}
			zoneHosts[i] = splitTXTRecords(recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Shuffle within each zone for load spreading, then order zones so
	// the instance's own zone comes first when affinity is enabled.
	var same, others []string
	for i, zoneName := range zoneNames {
		hosts := zoneHosts[i]
		rand.Shuffle(len(hosts), func(a, b int) {
			hosts[a], hosts[b] = hosts[b], hosts[a]
		})
		if d.cfg.PreferSameZone && d.cfg.InstanceZone != "" && zoneOf(zoneName) == d.cfg.InstanceZone {
			same = append(same, hosts...)
		} else {
			others = append(others, hosts...)
		}
	}

	all := append(same, others...)
	if len(all) == 0 {
		return nil, ErrEmptyResolution
	}
	return all, nil
}

// zoneOf extracts the availability zone from a per-zone DNS name
// (us-east-1c.eureka.example.com → us-east-1c).
func zoneOf(zoneName string) string {
	if i := strings.IndexByte(zoneName, '.'); i > 0 {
		return zoneName[:i]
	}
	return zoneName
}

// splitTXTRecords flattens TXT record strings into individual values;
// records may pack several whitespace-separated names into one string.
func splitTXTRecords(records []string) []string {
	var out []string
	for _, r := range records {
		out = append(out, strings.Fields(r)...)
	}
	return out
}

func sameHostSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for h := range a {
		if _, ok := b[h]; !ok {
			return false
		}
	}
	return len(a) > 0
}

// Compile-time checks.
var (
	_ ClusterResolver = (*Static)(nil)
	_ ClusterResolver = (*DNS)(nil)
)
