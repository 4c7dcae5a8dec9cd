// Package resolver turns cluster configuration into concrete Eureka
// server base URLs.
//
// Two implementations are provided:
//
//   - Static: built once from configuration (single host or a zone→URL
//     map) into an immutable ring that is only ever rotated.
//   - DNS: discovers servers through two-level DNS TXT lookups and
//     refreshes the resolved list on a fixed background interval.
//
// Both resolvers hand out the head of their ring and rotate it when the
// caller reports a retry, so successive attempts spread across servers.
// Rotation is sticky: later unrelated calls continue from the rotated
// position.
package resolver
