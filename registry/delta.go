package registry

// ApplyDelta applies an incremental batch to the cache. Instances are
// matched by (hostName, port) only.
//
//   - ADDED inserts into every relevant slot unless an identical identity
//     is already there; instances failing the UP filter are skipped.
//   - MODIFIED replaces the matching entry wherever it is found, and falls
//     back to ADDED when it exists nowhere. The UP filter gates ADD but
//     not MODIFY: a DOWN modification still lands on a cached instance.
//   - DELETED removes the matching entry wherever it is found; deleting an
//     absent instance is a no-op.
//
// MODIFIED keeps an instance under the vip keys it was found in, so a
// modification that changes vipAddress can leave a stale entry under the
// old key. That mirrors the upstream reconciler and is intentional.
func ApplyDelta(c *Cache, apps []Application, filterUp bool) {
	for _, app := range apps {
		for _, inst := range app.Instances {
			switch inst.ActionType {
			case ActionAdded:
				addInstance(c, app.Name, inst, filterUp)
			case ActionModified:
				modifyInstance(c, app.Name, inst, filterUp)
			case ActionDeleted:
				deleteInstance(c, app.Name, inst)
			}
		}
	}
}

func addInstance(c *Cache, appName string, inst Instance, filterUp bool) {
	if filterUp && inst.Status != StatusUp {
		return
	}
	appKey := appKeyFor(appName, &inst)
	c.ByApp[appKey] = addToSlot(c.ByApp[appKey], inst)
	for _, vip := range splitVipAddresses(inst.VipAddress) {
		c.ByVip[vip] = addToSlot(c.ByVip[vip], inst)
	}
}

func modifyInstance(c *Cache, appName string, inst Instance, filterUp bool) {
	found := false
	appKey := appKeyFor(appName, &inst)
	if slot, ok := replaceInSlot(c.ByApp[appKey], inst); ok {
		c.ByApp[appKey] = slot
		found = true
	}
	for _, vip := range splitVipAddresses(inst.VipAddress) {
		if slot, ok := replaceInSlot(c.ByVip[vip], inst); ok {
			c.ByVip[vip] = slot
			found = true
		}
	}
	if !found {
		addInstance(c, appName, inst, filterUp)
	}
}

func deleteInstance(c *Cache, appName string, inst Instance) {
	appKey := appKeyFor(appName, &inst)
	c.ByApp[appKey] = removeFromSlot(c.ByApp[appKey], inst)
	for _, vip := range splitVipAddresses(inst.VipAddress) {
		c.ByVip[vip] = removeFromSlot(c.ByVip[vip], inst)
	}
}

// addToSlot appends inst unless the slot already holds its identity.
func addToSlot(slot []Instance, inst Instance) []Instance {
	for i := range slot {
		if slot[i].SameIdentity(&inst) {
			return slot
		}
	}
	return append(slot, inst)
}

// replaceInSlot swaps the matching entry for inst, reporting whether a
// match was found.
func replaceInSlot(slot []Instance, inst Instance) ([]Instance, bool) {
	for i := range slot {
		if slot[i].SameIdentity(&inst) {
			slot[i] = inst
			return slot, true
		}
	}
	return slot, false
}

// removeFromSlot deletes the matching entry if present.
func removeFromSlot(slot []Instance, inst Instance) []Instance {
	for i := range slot {
		if slot[i].SameIdentity(&inst) {
			return append(slot[:i], slot[i+1:]...)
		}
	}
	return slot
}
