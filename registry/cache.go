package registry

import "strings"

// Cache indexes instances two ways: by upper-cased application name and
// by each comma-split VIP address token. A Cache is built in one pass by
// BuildCache and then either replaced wholesale (full fetch) or edited in
// place by the delta reconciler. It carries no lock of its own; Store
// owns synchronization.
type Cache struct {
	ByApp map[string][]Instance
	ByVip map[string][]Instance
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		ByApp: make(map[string][]Instance),
		ByVip: make(map[string][]Instance),
	}
}

// BuildCache builds a fresh cache from a full snapshot. When filterUp is
// set, only UP instances are indexed. The result is always a new Cache;
// callers replace their old one rather than merging.
func BuildCache(apps []Application, filterUp bool) *Cache {
	c := NewCache()
	for _, app := range apps {
		for _, inst := range app.Instances {
			if filterUp && inst.Status != StatusUp {
				continue
			}
			c.insert(app.Name, inst)
		}
	}
	return c
}

// InstancesByAppID returns the indexed instances for an application name.
// Lookup is case-insensitive; the result is a copy.
func (c *Cache) InstancesByAppID(appID string) []Instance {
	return copyInstances(c.ByApp[strings.ToUpper(appID)])
}

// InstancesByVipAddress returns the indexed instances for a VIP address.
// The result is a copy.
func (c *Cache) InstancesByVipAddress(vip string) []Instance {
	return copyInstances(c.ByVip[vip])
}

// AppNames returns the indexed application names.
func (c *Cache) AppNames() []string {
	names := make([]string, 0, len(c.ByApp))
	for name := range c.ByApp {
		names = append(names, name)
	}
	return names
}

// insert places inst into the app index and each of its vip index slots,
// without duplicate checks. Delta application uses the slot-aware helpers
// below instead.
func (c *Cache) insert(appName string, inst Instance) {
	appKey := appKeyFor(appName, &inst)
	c.ByApp[appKey] = append(c.ByApp[appKey], inst)
	for _, vip := range splitVipAddresses(inst.VipAddress) {
		c.ByVip[vip] = append(c.ByVip[vip], inst)
	}
}

// appKeyFor prefers the payload's app field and falls back to the
// enclosing application entry's name.
func appKeyFor(appName string, inst *Instance) string {
	if inst.App != "" {
		return strings.ToUpper(inst.App)
	}
	return strings.ToUpper(appName)
}

// splitVipAddresses splits the comma-separated vipAddress field into its
// tokens, dropping empties.
func splitVipAddresses(vip string) []string {
	if vip == "" {
		return nil
	}
	parts := strings.Split(vip, ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func copyInstances(src []Instance) []Instance {
	if len(src) == 0 {
		return nil
	}
	out := make([]Instance, len(src))
	copy(out, src)
	return out
}
