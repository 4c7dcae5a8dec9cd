// Package registry holds the local view of a remote Eureka registry.
//
// It defines the wire model for instances and applications, a Cache with
// two indices (by application name and by VIP address), and the delta
// reconciler that applies incremental add/modify/delete batches. A Store
// wraps the current Cache behind a lock so full snapshots install
// atomically while deltas mutate in place.
//
//   - Full fetches build a brand-new Cache and replace the old one wholesale.
//   - Delta fetches edit the existing Cache entry by entry.
//   - Instance identity is (hostName, port); no other field participates.
package registry
